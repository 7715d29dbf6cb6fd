package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docrank/internal/features"
	"github.com/dgallion1/docrank/internal/rank"
	"github.com/dgallion1/docrank/internal/score"
	"github.com/dgallion1/docrank/internal/segment"
)

// Built-in ranking presets.
const (
	PresetLite = "lite"
	PresetFull = "full"
)

// Profile is the complete, parameterized ranking pipeline configuration.
type Profile struct {
	Name     string          `yaml:"name"`
	Base     string          `yaml:"base"` // Preset the file is layered on.
	Segment  segment.Config  `yaml:"segment"`
	Features features.Config `yaml:"features"`
	Score    score.Config    `yaml:"score"`
	Rank     rank.Config     `yaml:"rank"`
}

// Preset returns a built-in profile by name.
func Preset(name string) (Profile, error) {
	p := Profile{
		Name:     PresetLite,
		Base:     PresetLite,
		Segment:  segment.DefaultConfig(),
		Features: features.DefaultConfig(),
		Score:    score.DefaultConfig(),
		Rank:     rank.DefaultConfig(),
	}
	switch strings.ToLower(name) {
	case "", PresetLite:
		return p, nil
	case PresetFull:
		p.Name, p.Base = PresetFull, PresetFull
		p.Features.SubUnitMode = features.ModeParagraph
		p.Features.KeywordCount = 15
		p.Score.Similarity = score.SimilarityTFIDF
		p.Rank.MaxSections = 20
		p.Rank.MaxSubUnits = 30
		return p, nil
	}
	return Profile{}, fmt.Errorf("unknown profile preset %q", name)
}

// LoadProfile resolves ref as a preset name, or else as a YAML file whose
// fields override the preset named by its base key.
func LoadProfile(ref string) (Profile, error) {
	if p, err := Preset(ref); err == nil {
		return p, nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile on top of its base preset.
func ParseProfile(data []byte) (Profile, error) {
	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	p, err := Preset(head.Base)
	if err != nil {
		return Profile{}, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if p.Name == "" {
		p.Name = p.Base
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

const weightTolerance = 1e-6

// Validate checks that weights are normalized and limits are usable.
func (p Profile) Validate() error {
	var errs []string

	if sum := p.Score.Weights.Sum(); math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Sprintf("score weights sum to %.4f, want 1", sum))
	}
	if _, err := score.NewSimilarity(p.Score.Similarity); err != nil {
		errs = append(errs, err.Error())
	}
	switch p.Features.SubUnitMode {
	case "", features.ModeSentence, features.ModeParagraph:
	default:
		errs = append(errs, fmt.Sprintf("unknown subunit mode %q", p.Features.SubUnitMode))
	}
	if p.Rank.MaxSections <= 0 || p.Rank.MaxSubUnits <= 0 {
		errs = append(errs, "rank limits must be positive")
	}
	if p.Rank.PreviewLength < rank.MinTextLength || p.Rank.RefinedLength < rank.MinTextLength || p.Rank.MaxTitleLength < rank.MinTextLength {
		errs = append(errs, fmt.Sprintf("preview, refined and title lengths must be at least %d", rank.MinTextLength))
	}
	if p.Score.Inherit < 0 || p.Score.Inherit > 1 {
		errs = append(errs, "inherit must be within [0, 1]")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid profile %q: %s", p.Name, strings.Join(errs, "; "))
	}
	return nil
}
