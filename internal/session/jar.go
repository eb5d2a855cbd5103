package session

import (
	"net/http"
	"net/url"
	"time"
)

// Jar expõe os cookies do backend guardados na sessão como http.CookieJar.
// O portal conversa com um único backend, então domínio não é considerado.
func (s *Store) Jar() http.CookieJar {
	return storeJar{s}
}

type storeJar struct {
	s *Store
}

func (j storeJar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	s := j.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, c := range cookies {
		idx := -1
		for i, existing := range s.sess.Cookies {
			if existing.Name == c.Name {
				idx = i
				break
			}
		}
		expired := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now))
		if expired {
			if idx >= 0 {
				s.sess.Cookies = append(s.sess.Cookies[:idx], s.sess.Cookies[idx+1:]...)
			}
			s.dirty = true
			continue
		}
		entry := Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires}
		if c.MaxAge > 0 {
			entry.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if idx >= 0 {
			s.sess.Cookies[idx] = entry
		} else {
			s.sess.Cookies = append(s.sess.Cookies, entry)
		}
		s.dirty = true
	}
}

func (j storeJar) Cookies(_ *url.URL) []*http.Cookie {
	s := j.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]*http.Cookie, 0, len(s.sess.Cookies))
	for _, c := range s.sess.Cookies {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}
