package material

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadYAMLAndJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"grass.yaml": "model: scene\noptions:\n  Quality: High\n  Fog: On\n  Lights: 4\n",
		"grass.json": `{"model":"scene","options":{"Quality":"High","Fog":"On","Lights":4}}`,
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		p, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if p.Model != "scene" {
			t.Fatalf("%s: model = %q", name, p.Model)
		}
		if p.Options["Quality"] != "High" || p.Options["Lights"] != "4" {
			t.Fatalf("%s: options = %v", name, p.Options)
		}
		if !slices.Equal(p.Names(), []string{"Fog", "Lights", "Quality"}) {
			t.Fatalf("%s: names = %v", name, p.Names())
		}
	}
}

func TestYAMLBooleanLikeChoicesStayStrings(t *testing.T) {
	t.Parallel()

	p, err := Parse([]byte("options:\n  Fog: On\n  Shadow: true\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// yaml.v3 follows YAML 1.2, where only true/false are booleans.
	if p.Options["Fog"] != "On" || p.Options["Shadow"] != "true" {
		t.Fatalf("options = %v", p.Options)
	}
}

func TestParseRejectsNestedChoices(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte(`{"options":{"Fog":{"a":1}}}`), FormatJSON); err == nil {
		t.Fatal("nested choice accepted")
	}
	if _, err := Parse([]byte("options:\n  Fog:\n"), FormatYAML); err == nil {
		t.Fatal("empty choice accepted")
	}
}

func TestFormatFor(t *testing.T) {
	t.Parallel()

	if f, err := FormatFor("a/B.YML"); err != nil || f != FormatYAML {
		t.Fatalf("FormatFor = %q, %v", f, err)
	}
	if _, err := FormatFor("preset.toml"); !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v; want ErrFormat", err)
	}
}

func TestMergeOverrides(t *testing.T) {
	t.Parallel()

	base := &Preset{Model: "scene", Options: map[string]string{"Quality": "Low", "Fog": "Off"}}
	pairs, err := ParsePairs([]string{"Fog=On", " Wind = Strong "})
	if err != nil {
		t.Fatalf("ParsePairs: %v", err)
	}
	got := Merge(base, pairs)
	want := map[string]string{"Quality": "Low", "Fog": "On", "Wind": "Strong"}
	for k, v := range want {
		if got.Options[k] != v {
			t.Fatalf("merged[%s] = %q; want %q", k, got.Options[k], v)
		}
	}
	if base.Options["Fog"] != "Off" {
		t.Fatalf("Merge modified its input")
	}
	if got := Merge(nil, nil); got.Options == nil || len(got.Options) != 0 {
		t.Fatalf("Merge(nil, nil) = %+v", got)
	}
	if _, err := ParsePairs([]string{"=On"}); err == nil {
		t.Fatal("empty option name accepted")
	}
	if _, err := ParsePairs([]string{"Fog"}); err == nil {
		t.Fatal("missing choice accepted")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	p := &Preset{Model: "scene", Options: map[string]string{"Fog": "On"}}
	for _, f := range []Format{FormatYAML, FormatJSON} {
		data, err := p.Marshal(f)
		if err != nil {
			t.Fatalf("Marshal(%s): %v", f, err)
		}
		back, err := Parse(data, f)
		if err != nil {
			t.Fatalf("Parse(%s): %v", f, err)
		}
		if back.Model != "scene" || back.Options["Fog"] != "On" {
			t.Fatalf("%s round trip = %+v", f, back)
		}
	}
}
