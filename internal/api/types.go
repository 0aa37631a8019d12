package api

import (
	"time"

	"github.com/samcharles93/fsha/pkg/fsha"
)

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

type ArchiveSummary struct {
	ID       string        `json:"id"`
	Object   string        `json:"object"`
	Name     string        `json:"name"`
	Path     string        `json:"path,omitempty"`
	Size     int64         `json:"size"`
	LoadedAt time.Time     `json:"loaded_at"`
	Platform fsha.Platform `json:"platform"`
	Version  fsha.Version  `json:"version"`
	Models   []string      `json:"models"`
}

type ArchiveList struct {
	Object string           `json:"object"`
	Data   []ArchiveSummary `json:"data"`
}

type ArchiveDetail struct {
	ArchiveSummary
	Container ContainerInfo  `json:"container"`
	ModelInfo []ModelSummary `json:"model_info"`
}

type ContainerInfo struct {
	Name          string `json:"name"`
	Path          string `json:"path"`
	BigEndian     bool   `json:"big_endian"`
	DataAlignment int64  `json:"data_alignment"`
	AddressSize   uint8  `json:"address_size,omitempty"`
}

type ModelSummary struct {
	Name           string `json:"name"`
	StaticOptions  int    `json:"static_options"`
	DynamicOptions int    `json:"dynamic_options"`
	Attributes     int    `json:"attributes"`
	Samplers       int    `json:"samplers"`
	UniformBlocks  int    `json:"uniform_blocks"`
	Programs       int    `json:"programs"`
	Embedded       bool   `json:"embedded"`
}

type OptionInfo struct {
	Name          string   `json:"name"`
	Dynamic       bool     `json:"dynamic"`
	Choices       []string `json:"choices"`
	DefaultChoice string   `json:"default_choice"`
}

type ModelDetail struct {
	ModelSummary
	Options             []OptionInfo `json:"options"`
	AttributeNames      []string     `json:"attribute_names"`
	SamplerNames        []string     `json:"sampler_names"`
	UniformBlockNames   []string     `json:"uniform_block_names"`
	DefaultProgramIndex int32        `json:"default_program_index"`
	KeyLength           int          `json:"key_length"`
}

type ProgramDetail struct {
	Index   int                 `json:"index"`
	Key     []int32             `json:"key"`
	Choices []fsha.OptionChoice `json:"choices"`
	Program *fsha.ShaderProgram `json:"program"`
	Code    []VariationCodeInfo `json:"code,omitempty"`
}

type VariationCodeInfo struct {
	Format string   `json:"format"`
	Stages []string `json:"stages"`
}

type ResolveRequest struct {
	Options map[string]string `json:"options"`
}

type ResolveResponse struct {
	ProgramIndex int  `json:"program_index"`
	Found        bool `json:"found"`
}

type CreateArchiveResponse struct {
	ID     string `json:"id"`
	Object string `json:"object"`
}

type DeleteArchiveResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
