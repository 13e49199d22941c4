package http

import (
	"github.com/freekieb7/espweb/session"
)

// SessionOptions controls the session id cookie. Only the identifier is
// managed here; storing data behind it is up to the application.
type SessionOptions struct {
	CookieName string
	// IDBytes is the number of random bytes in a generated id.
	IDBytes  int
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite SameSite

	Validate session.Validator
	Generate session.Generator
	// OnRotate is called with the old and the new id after a rotation.
	OnRotate func(oldID, newID string)
}

func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		CookieName: "sid",
		IDBytes:    session.DefaultIDBytes,
		Path:       "/",
		MaxAge:     -1,
		HttpOnly:   true,
		SameSite:   SameSiteLaxMode,
	}
}

func (opts *SessionOptions) validate(id string) bool {
	if opts.Validate != nil {
		return opts.Validate(id)
	}
	return session.ValidID(id, opts.IDBytes)
}

func (opts *SessionOptions) generate() (string, error) {
	if opts.Generate != nil {
		return opts.Generate()
	}
	return session.NewID(opts.IDBytes)
}

func (opts *SessionOptions) cookie(id string) Cookie {
	return Cookie{
		Name:     opts.CookieName,
		Value:    id,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: opts.HttpOnly,
		SameSite: opts.SameSite,
	}
}

// Session returns the session started for this request, if any.
func (req *Request) Session() (session.Info, bool) {
	if req.session == nil {
		return session.Info{}, false
	}
	return *req.session, true
}

// BeginSession reuses a valid session cookie or issues a new id. The cookie
// is (re)sent for new sessions and whenever MaxAge is not negative, so
// existing sessions get their lifetime refreshed.
func (req *Request) BeginSession(res *Response) (session.Info, error) {
	if req.session != nil {
		return *req.session, nil
	}

	opts := &req.server.Config.Session
	info := session.Info{}

	if id, found := req.Cookie(opts.CookieName); found && opts.validate(id) {
		info.ID = id
	} else {
		id, err := opts.generate()
		if err != nil {
			return info, err
		}
		info.ID, info.IsNew = id, true
	}
	req.session = &info

	if info.IsNew || opts.MaxAge >= 0 {
		if err := res.SetCookie(opts.cookie(info.ID)); err != nil {
			return info, err
		}
	}

	return info, nil
}

// RotateSession replaces the session id, typically after a login.
func (req *Request) RotateSession(res *Response) (session.Info, error) {
	opts := &req.server.Config.Session

	var oldID string
	if req.session != nil {
		oldID = req.session.ID
	} else if id, found := req.Cookie(opts.CookieName); found && opts.validate(id) {
		oldID = id
	}

	newID, err := opts.generate()
	if err != nil {
		return session.Info{}, err
	}

	info := session.Info{ID: newID, IsNew: true, Rotated: true}
	req.session = &info

	if err := res.SetCookie(opts.cookie(newID)); err != nil {
		return info, err
	}

	if opts.OnRotate != nil && oldID != "" {
		opts.OnRotate(oldID, newID)
	}

	return info, nil
}

// TouchSession sends the current id again to extend the cookie lifetime.
func (req *Request) TouchSession(res *Response) error {
	if req.session == nil {
		return ErrNoSession
	}
	return res.SetCookie(req.server.Config.Session.cookie(req.session.ID))
}
