// Package project reads render project descriptors and writes the studio props file
// that points the renderer at cached assets.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wisdom-in-a-nutshell/asset-cache/internal/assets"
)

const (
	mattingFile    = "matting.json"
	transcriptFile = "transcript.json"
	storyboardFile = "storyboard.json"

	// PropsFile 写在命名空间目录内，.json 后缀使其不会进入合并目录。
	PropsFile = "studio-props.json"
)

// Asset 是项目文件 assets 列表中的一项。
type Asset struct {
	Slot        string `json:"slot" yaml:"slot"`
	Kind        string `json:"kind" yaml:"kind"`
	URL         string `json:"url" yaml:"url"`
	FallbackExt string `json:"fallback_ext" yaml:"fallback_ext"`
}

// Project 是解析后的项目描述。
type Project struct {
	ID       string
	Path     string
	Dir      string
	VideoURL string
	AlphaURL string
	Assets   []Asset

	TranscriptWords    json.RawMessage
	TranscriptSourceID *string
	Storyboard         json.RawMessage
}

type rawProject struct {
	ID            string  `json:"id" yaml:"id"`
	VideoURL      string  `json:"video_url" yaml:"video_url"`
	VideoURLCamel string  `json:"videoUrl" yaml:"videoUrl"`
	Assets        []Asset `json:"assets" yaml:"assets"`
}

type rawMatting struct {
	AlphaURL      string `json:"alpha_url" yaml:"alpha_url"`
	AlphaURLCamel string `json:"alphaUrl" yaml:"alphaUrl"`
}

// Load 读取 JSON 或 YAML 项目文件，并合并同目录下的 matting/transcript/storyboard。
func Load(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	var raw rawProject
	if err := decodeFile(abs, &raw); err != nil {
		return nil, err
	}

	p := &Project{
		ID:       strings.TrimSpace(raw.ID),
		Path:     abs,
		Dir:      filepath.Dir(abs),
		VideoURL: firstNonEmpty(raw.VideoURL, raw.VideoURLCamel),
		Assets:   raw.Assets,
	}
	if p.ID == "" {
		p.ID = filepath.Base(p.Dir)
	}
	if p.VideoURL == "" {
		return nil, fmt.Errorf("project %s is missing video_url/videoUrl", abs)
	}

	var matting rawMatting
	found, err := decodeOptional(filepath.Join(p.Dir, mattingFile), &matting)
	if err != nil {
		return nil, err
	}
	if found {
		p.AlphaURL = firstNonEmpty(matting.AlphaURL, matting.AlphaURLCamel)
	}

	if err := p.loadTranscript(); err != nil {
		return nil, err
	}
	if err := p.loadStoryboard(); err != nil {
		return nil, err
	}
	return p, nil
}

// Descriptors 把项目转换为缓存描述符：video 与 alpha 两个固定槽位加上 assets 列表。
func (p *Project) Descriptors() []assets.Descriptor {
	out := []assets.Descriptor{{Slot: "video", Kind: "video", URL: p.VideoURL}}
	if p.AlphaURL != "" {
		out = append(out, assets.Descriptor{Slot: "alpha", Kind: "alpha", URL: p.AlphaURL})
	}
	for _, a := range p.Assets {
		out = append(out, assets.Descriptor{
			Slot:        a.Slot,
			Kind:        a.Kind,
			URL:         a.URL,
			FallbackExt: a.FallbackExt,
		})
	}
	return out
}

func (p *Project) loadTranscript() error {
	payload, err := readOptional(filepath.Join(p.Dir, transcriptFile))
	if err != nil || payload == nil {
		return err
	}
	var words []json.RawMessage
	if json.Unmarshal(payload, &words) == nil {
		p.TranscriptWords = payload
		return nil
	}
	var wrapped struct {
		Words         json.RawMessage `json:"words"`
		SourceID      *string         `json:"source_id"`
		SourceIDCamel *string         `json:"sourceId"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return fmt.Errorf("parse %s: %w", transcriptFile, err)
	}
	if len(wrapped.Words) > 0 && wrapped.Words[0] == '[' {
		p.TranscriptWords = wrapped.Words
		p.TranscriptSourceID = wrapped.SourceID
		if p.TranscriptSourceID == nil {
			p.TranscriptSourceID = wrapped.SourceIDCamel
		}
		return nil
	}
	p.TranscriptWords = payload
	return nil
}

func (p *Project) loadStoryboard() error {
	payload, err := readOptional(filepath.Join(p.Dir, storyboardFile))
	if err != nil || payload == nil {
		return err
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return fmt.Errorf("parse %s: %w", storyboardFile, err)
	}
	p.Storyboard = payload
	return nil
}

func decodeFile(path string, out any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read project: %w", err)
	}
	if err := unmarshal(path, payload, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func decodeOptional(path string, out any) (bool, error) {
	payload, err := readOptional(path)
	if err != nil || payload == nil {
		return false, err
	}
	if err := unmarshal(path, payload, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// unmarshal 对 .json 使用 encoding/json（允许制表符缩进），其余按 YAML 解析。
func unmarshal(path string, payload []byte, out any) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(payload, out)
	}
	return yaml.Unmarshal(payload, out)
}

func readOptional(path string) ([]byte, error) {
	payload, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return payload, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
