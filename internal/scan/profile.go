package scan

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default_profile.yaml
var defaultProfileYAML []byte

// ErrInvalidProfile is returned for a profile the workflow cannot run.
var ErrInvalidProfile = errors.New("invalid scan profile")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Phase is one named, fixed-duration step of a scan.
type Phase struct {
	ID       string        `yaml:"id" json:"id" validate:"required"`
	Label    string        `yaml:"label" json:"label" validate:"required"`
	Duration time.Duration `yaml:"duration" json:"duration" validate:"gt=0"`
}

// ConfidenceRange bounds generated confidence percentages.
type ConfidenceRange struct {
	Min float64 `yaml:"min" json:"min" validate:"gte=0,lte=100"`
	Max float64 `yaml:"max" json:"max" validate:"gte=0,lte=100,gtefield=Min"`
}

// Rewards are the coins credited per verdict.
type Rewards struct {
	Fake int `yaml:"fake" json:"fake"`
	Safe int `yaml:"safe" json:"safe"`
}

// Profile is everything tunable about a simulated scan.
type Profile struct {
	Phases           []Phase         `yaml:"phases" json:"phases" validate:"min=1,dive"`
	FrameInterval    time.Duration   `yaml:"frame_interval" json:"frame_interval" validate:"gt=0"`
	FakeProbability  float64         `yaml:"fake_probability" json:"fake_probability" validate:"gte=0,lte=1"`
	Confidence       ConfidenceRange `yaml:"confidence" json:"confidence"`
	Rewards          Rewards         `yaml:"rewards" json:"rewards"`
	FakeReasons      []string        `yaml:"fake_reasons" json:"fake_reasons" validate:"min=1,dive,required"`
	AuthenticReasons []string        `yaml:"authentic_reasons" json:"authentic_reasons" validate:"min=1,dive,required"`
	AcceptedTypes    []string        `yaml:"accepted_types" json:"accepted_types" validate:"min=1,dive,required"`
}

// DefaultProfile returns the embedded profile.
func DefaultProfile() Profile {
	p, err := ParseProfile(defaultProfileYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded scan profile: %v", err))
	}
	return p
}

// LoadProfile reads a profile from path, or returns the default when path is empty.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read scan profile: %w", err)
	}
	return ParseProfile(b)
}

// ParseProfile decodes and validates a YAML profile. Unknown keys are rejected.
func ParseProfile(b []byte) (Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate rejects profiles with no phases, non-positive durations, empty
// reason lists, a probability outside [0,1] or an inverted confidence range.
func (p Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	return nil
}

// TotalDuration is the sum of all phase durations.
func (p Profile) TotalDuration() time.Duration {
	var d time.Duration
	for _, ph := range p.Phases {
		d += ph.Duration
	}
	return d
}

// RewardFor returns the coins credited for a verdict.
func (p Profile) RewardFor(fake bool) int {
	if fake {
		return p.Rewards.Fake
	}
	return p.Rewards.Safe
}
