package driver

import "github.com/charmbracelet/harmonica"

// scrollSpring smooths the raw scroll feed before it reaches the field.
type scrollSpring struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

func newScrollSpring(fps int, frequency, damping float64) scrollSpring {
	if fps <= 0 {
		fps = 60
	}
	return scrollSpring{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

func (s *scrollSpring) retune(fps int, frequency, damping float64) {
	next := newScrollSpring(fps, frequency, damping)
	s.spring = next.spring
}

func (s *scrollSpring) step() float64 {
	s.pos, s.vel = s.spring.Update(s.pos, s.vel, s.target)
	return s.pos
}

// jump moves to v without animating.
func (s *scrollSpring) jump(v float64) {
	s.pos, s.vel, s.target = v, 0, v
}
