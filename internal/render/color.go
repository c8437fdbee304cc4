package render

import (
	"strings"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// DetectProfile returns the color profile of the current terminal, honoring
// NO_COLOR and CLICOLOR_FORCE.
func DetectProfile() termenv.Profile {
	return termenv.EnvColorProfile()
}

// Registry records the escape sequences already built for a profile/color
// pair. It is shared by every canvas of a process; emitting a sequence is
// idempotent, so a hit skips the work of building it again.
type Registry struct {
	mu   sync.RWMutex
	seqs map[uint32]string
}

func NewRegistry() *Registry {
	return &Registry{seqs: make(map[uint32]string)}
}

func (r *Registry) Has(key uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.seqs[key]
	return ok
}

func (r *Registry) Add(key uint32, seq string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs[key] = seq
}

func (r *Registry) Get(key uint32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.seqs[key]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.seqs)
}

type rgb8 struct {
	R, G, B uint8
}

func toRGB8(c colorful.Color) rgb8 {
	c = c.Clamped()
	r, g, b := c.RGB255()
	return rgb8{R: r, G: g, B: b}
}

func (c rgb8) hex() string {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Hex()
}

// sequence returns the foreground escape sequence for c, or "" when the
// profile has no colors.
func (r *Registry) sequence(p termenv.Profile, c rgb8) string {
	key := uint32(p)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	if seq, ok := r.Get(key); ok {
		return seq
	}
	var seq string
	if s := p.Color(c.hex()).Sequence(false); s != "" {
		seq = termenv.CSI + s + "m"
	}
	r.Add(key, seq)
	return seq
}

// ansiState suppresses repeated color escapes along a row.
type ansiState struct {
	profile termenv.Profile
	reg     *Registry
	current uint32
	active  bool
}

func newANSIState(p termenv.Profile, reg *Registry) ansiState {
	return ansiState{profile: p, reg: reg}
}

func (s *ansiState) set(sb *strings.Builder, c rgb8) {
	if s.profile == termenv.Ascii {
		return
	}
	key := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	if s.active && key == s.current {
		return
	}
	sb.WriteString(s.reg.sequence(s.profile, c))
	s.current = key
	s.active = true
}

func (s *ansiState) reset(sb *strings.Builder) {
	if s.profile == termenv.Ascii || !s.active {
		return
	}
	sb.WriteString(termenv.CSI + termenv.ResetSeq + "m")
	s.active = false
}
