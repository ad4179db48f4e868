package render

import "sync"

// CarouselOptions mirrors what the front-end swiper is initialized with.
type CarouselOptions struct {
	Loop        bool `json:"loop"`
	NextEnabled bool `json:"next_enabled"`
	Pagination  bool `json:"pagination"`
}

// OptionsFor returns the options for a carousel holding n cards: looping,
// the next button and pagination only make sense with more than one.
func OptionsFor(n int) CarouselOptions {
	multi := n > 1
	return CarouselOptions{Loop: multi, NextEnabled: multi, Pagination: multi}
}

// Carousel receives the cards of a list each time its content is replaced.
type Carousel interface {
	SetItems(cards []Card, opts CarouselOptions)
}

// SwiperState is a snapshot of a Swiper.
type SwiperState struct {
	Generation int             `json:"generation"`
	Options    CarouselOptions `json:"options"`
	Cards      []Card          `json:"cards"`
}

// Swiper is the default Carousel. The front-end swiper cannot swap content
// in place, so every SetItems tears down the previous instance and starts
// a new generation; clients reinitialize when the generation changes.
type Swiper struct {
	mu    sync.Mutex
	state SwiperState
}

func NewSwiper() *Swiper { return &Swiper{} }

func (s *Swiper) SetItems(cards []Card, opts CarouselOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SwiperState{
		Generation: s.state.Generation + 1,
		Options:    opts,
		Cards:      append([]Card(nil), cards...),
	}
}

func (s *Swiper) State() SwiperState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Cards = append([]Card(nil), st.Cards...)
	return st
}
