package server

import (
	"errors"
	"net/http"
	"strings"
)

var errNoSession = errors.New("no valid session")

func memberFromRequest(r *http.Request, store Store) (memberSession, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return memberSession{}, errNoSession
	}
	return store.MemberFromToken(r.Context(), token)
}
