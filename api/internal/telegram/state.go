package telegram

import (
	"sync"

	"stress-curve/api/internal/curve"
)

type chatPrefs struct {
	ModelTag string
	Mode     curve.Mode
}

type prefStore struct {
	m sync.Map // chatID -> chatPrefs
}

func (s *prefStore) get(chatID int64) chatPrefs {
	if v, ok := s.m.Load(chatID); ok {
		return v.(chatPrefs)
	}
	return chatPrefs{}
}

func (s *prefStore) setModel(chatID int64, tag string) {
	p := s.get(chatID)
	p.ModelTag = tag
	s.m.Store(chatID, p)
}

func (s *prefStore) setMode(chatID int64, mode curve.Mode) {
	p := s.get(chatID)
	p.Mode = mode
	s.m.Store(chatID, p)
}

func (s *prefStore) clear(chatID int64) { s.m.Delete(chatID) }
