// Package api serves decoded shader archives over HTTP.
package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/samcharles93/fsha/internal/archive"
	"github.com/samcharles93/fsha/internal/webui"
	"github.com/samcharles93/fsha/pkg/bnsh"
	"github.com/samcharles93/fsha/pkg/fsha"
)

// DefaultMaxUploadSize bounds POST /v1/archives bodies.
const DefaultMaxUploadSize = 256 << 20

type Server struct {
	store     *ArchiveStore
	opts      archive.Options
	maxUpload int64
}

func NewServer(store *ArchiveStore, opts archive.Options) *Server {
	if store == nil {
		store = NewArchiveStore()
	}
	return &Server{
		store:     store,
		opts:      opts,
		maxUpload: DefaultMaxUploadSize,
	}
}

// SetMaxUploadSize changes the upload limit; n <= 0 restores the default.
func (s *Server) SetMaxUploadSize(n int64) {
	if n <= 0 {
		n = DefaultMaxUploadSize
	}
	s.maxUpload = n
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/archives", s.handleUploadArchive)
	e.GET("/v1/archives", s.handleListArchives)
	e.GET("/v1/archives/:id", s.handleGetArchive)
	e.DELETE("/v1/archives/:id", s.handleDeleteArchive)

	e.GET("/v1/archives/:id/models/:model", s.handleGetModel)
	e.GET("/v1/archives/:id/models/:model/embedded", s.handleGetEmbedded)
	e.GET("/v1/archives/:id/models/:model/programs/:index", s.handleGetProgram)
	e.POST("/v1/archives/:id/models/:model/resolve", s.handleResolve)

	e.StaticFS("/", webui.Static())
}

func (s *Server) handleUploadArchive(c *echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, s.maxUpload+1))
	if err != nil {
		return writeBadRequest(c, "read body: "+err.Error())
	}
	if int64(len(body)) > s.maxUpload {
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error",
			fmt.Sprintf("archive exceeds %d bytes", s.maxUpload), "", "")
	}
	a, err := archive.OpenBytes(c.QueryParam("name"), body, s.opts)
	if err != nil {
		return writeFailure(c, err)
	}
	s.store.Add(a)
	return c.JSON(http.StatusCreated, CreateArchiveResponse{ID: a.ID, Object: "archive"})
}

func (s *Server) handleListArchives(c *echo.Context) error {
	archives := s.store.List()
	data := make([]ArchiveSummary, 0, len(archives))
	for _, a := range archives {
		data = append(data, summarize(a))
	}
	return c.JSON(http.StatusOK, ArchiveList{Object: "list", Data: data})
}

func (s *Server) handleGetArchive(c *echo.Context) error {
	a, err := s.store.Get(c.Param("id"))
	if err != nil {
		return writeFailure(c, err)
	}
	ct := a.Container
	out := ArchiveDetail{
		ArchiveSummary: summarize(a),
		Container: ContainerInfo{
			Name:          ct.Name,
			Path:          ct.Path,
			BigEndian:     ct.BigEndian,
			DataAlignment: ct.DataAlignment(),
			AddressSize:   ct.AddressSize,
		},
		ModelInfo: make([]ModelSummary, 0, ct.Models.Len()),
	}
	for _, m := range ct.Models.All() {
		out.ModelInfo = append(out.ModelInfo, summarizeModel(m))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteArchive(c *echo.Context) error {
	id := c.Param("id")
	if err := s.store.Delete(id); err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, DeleteArchiveResponse{ID: id, Object: "archive.deleted", Deleted: true})
}

func (s *Server) handleGetModel(c *echo.Context) error {
	m, err := s.model(c)
	if err != nil {
		return writeFailure(c, err)
	}
	out := ModelDetail{
		ModelSummary:        summarizeModel(m),
		AttributeNames:      m.Attributes.Keys(),
		SamplerNames:        m.Samplers.Keys(),
		UniformBlockNames:   m.UniformBlocks.Keys(),
		DefaultProgramIndex: m.DefaultProgramIndex,
		KeyLength:           m.RowWidth(),
	}
	for _, dynamic := range []bool{false, true} {
		opts := m.StaticOptions
		if dynamic {
			opts = m.DynamicOptions
		}
		for name, o := range opts.All() {
			out.Options = append(out.Options, OptionInfo{
				Name:          name,
				Dynamic:       dynamic,
				Choices:       o.ChoiceNames(),
				DefaultChoice: o.DefaultChoice(),
			})
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetEmbedded(c *echo.Context) error {
	m, err := s.model(c)
	if err != nil {
		return writeFailure(c, err)
	}
	data := m.EmbeddedBytes()
	if data == nil {
		return writeFailure(c, fmt.Errorf("%s: %w", m.Name, fsha.ErrNoEmbeddedContainer))
	}
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handleGetProgram(c *echo.Context) error {
	m, err := s.model(c)
	if err != nil {
		return writeFailure(c, err)
	}
	index, err := parseIndex(c.Param("index"))
	if err != nil {
		return writeFailure(c, err)
	}
	p, err := m.Program(index)
	if err != nil {
		return writeFailure(c, err)
	}
	key, err := m.ProgramKey(index)
	if err != nil {
		return writeFailure(c, err)
	}
	choices, err := m.ProgramChoices(index)
	if err != nil {
		return writeFailure(c, err)
	}
	out := ProgramDetail{Index: index, Key: key, Choices: choices, Program: p}
	if m.EmbeddedBytes() != nil && p.VariationOffset != 0 {
		v, err := m.Variation(p)
		if err != nil {
			return writeFailure(c, err)
		}
		out.Code = codeInfo(v)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleResolve(c *echo.Context) error {
	m, err := s.model(c)
	if err != nil {
		return writeFailure(c, err)
	}
	req, err := decodeJSON[ResolveRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, "invalid JSON body: "+err.Error())
	}
	index, found, err := m.ProgramIndex(req.Options)
	if err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, ResolveResponse{ProgramIndex: index, Found: found})
}

func (s *Server) model(c *echo.Context) (*fsha.ShaderModel, error) {
	a, err := s.store.Get(c.Param("id"))
	if err != nil {
		return nil, err
	}
	name := c.Param("model")
	m, ok := a.Container.Model(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in archive %s", ErrModelNotFound, name, a.ID)
	}
	return m, nil
}

func summarize(a *archive.Archive) ArchiveSummary {
	return ArchiveSummary{
		ID:       a.ID,
		Object:   "archive",
		Name:     a.Name,
		Path:     a.Path,
		Size:     a.Size,
		LoadedAt: a.LoadedAt,
		Platform: a.Container.Platform,
		Version:  a.Container.Version,
		Models:   a.Container.Models.Keys(),
	}
}

func summarizeModel(m *fsha.ShaderModel) ModelSummary {
	return ModelSummary{
		Name:           m.Name,
		StaticOptions:  m.StaticOptions.Len(),
		DynamicOptions: m.DynamicOptions.Len(),
		Attributes:     m.Attributes.Len(),
		Samplers:       m.Samplers.Len(),
		UniformBlocks:  m.UniformBlocks.Len(),
		Programs:       len(m.Programs),
		Embedded:       m.EmbeddedBytes() != nil,
	}
}

func codeInfo(v *bnsh.Variation) []VariationCodeInfo {
	var out []VariationCodeInfo
	for _, p := range v.Programs() {
		info := VariationCodeInfo{Format: p.Format.String(), Stages: []string{}}
		for st, code := range p.Stages {
			if code != nil {
				info.Stages = append(info.Stages, bnsh.Stage(st).String())
			}
		}
		out = append(out, info)
	}
	return out
}
