package identity

import "time"

func (d *Directory) SetClock(now func() time.Time) {
	d.now = now
}

func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TokenService) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}
