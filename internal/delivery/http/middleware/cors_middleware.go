package middleware

import "net/http"

const corsMaxAge = "86400"

// CORSMiddleware answers browser preflights. With no configured origins, or
// with "*" among them, any origin is allowed.
type CORSMiddleware struct {
	anyOrigin bool
	origins   map[string]bool
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	m := &CORSMiddleware{
		anyOrigin: len(allowedOrigins) == 0,
		origins:   make(map[string]bool, len(allowedOrigins)),
	}
	for _, o := range allowedOrigins {
		if o == "*" {
			m.anyOrigin = true
		}
		m.origins[o] = true
	}
	return m
}

func (m *CORSMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if m.anyOrigin {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Add("Vary", "Origin")
			if origin := req.Header.Get("Origin"); m.origins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		// lets the browser read the download filename of exports
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Access-Control-Max-Age", corsMaxAge)

		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, req)
	})
}
