package route

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"attendex/src-server/apiclient"
	"attendex/src-server/entity"
	"attendex/src-server/form"
	"attendex/src-server/jwt"
	"attendex/src-server/model"
	"attendex/src-server/notify"
	"attendex/src-server/querycache"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type loginContent struct {
	Expired bool
	Dialog  form.DialogView
}

type changePasswordContent struct {
	Forced bool
	Dialog form.DialogView
}

func Auth(r chi.Router, s *Server) {
	r.Get("/login", s.handle(func(p *page) {
		p.render(http.StatusOK, "login", "Sign in", loginContent{
			Expired: p.r.URL.Query().Get("expired") == "1",
			Dialog:  form.LoginDialog("/login").View(),
		})
	}))

	r.Post("/login", s.handle(func(p *page) {
		d := form.LoginDialog("/login")
		values, err := form.ValuesFromRequest(p.r, d.Fields)
		if err != nil {
			http.Error(p.w, "Bad Request", http.StatusBadRequest)
			return
		}

		var sess *model.Session
		submitted, err := d.Submit(p.ctx(), values, func(ctx context.Context, in entity.LoginRequest) error {
			token, err := s.as.Auth.Login(ctx, in.Username, in.Password)
			if err != nil {
				p.notify(notify.Error(apiclient.Message(err, "Invalid username or password")))
				return err
			}
			sess, err = s.startSession(ctx, token)
			if err != nil {
				p.notify(notify.Error(apiclient.DefaultMessage))
			}
			return err
		})
		switch {
		case !submitted:
			p.render(http.StatusUnprocessableEntity, "login", "Sign in", loginContent{Dialog: d.View()})
			return
		case err != nil:
			slog.Debug("login failed", "error", err)
			d.Open = true
			p.render(http.StatusUnauthorized, "login", "Sign in", loginContent{Dialog: d.View()})
			return
		}

		s.setSessionCookie(p.w, sess)
		if sess.ForcePasswordChange {
			p.redirect(s.as.Policy.ChangePassword)
			return
		}
		payload, _ := jwt.Decode(sess.Token)
		home, ok := s.as.Policy.HomeFor(payload)
		if !ok {
			home = "/"
		}
		p.redirect(home)
	}))

	r.Post("/logout", s.handle(func(p *page) {
		if p.viewer != nil {
			sess := p.viewer.session
			if err := s.as.Auth.Logout(p.ctx(), sess.Token); err != nil {
				slog.Debug("api logout failed", "error", err)
			}
			if err := model.DeleteSession(p.ctx(), s.as.BunDb, sess.Secret); err != nil {
				slog.Error("can't delete session", "error", err)
			}
			s.as.Cache.Invalidate(querycache.Key{sess.UserID})
		}
		s.clearSessionCookie(p.w)
		p.notify(notify.Info("You have been signed out"))
		p.redirect(s.as.Policy.LoginURL(false))
	}))

	r.Get("/change-password", s.handle(func(p *page) {
		p.render(http.StatusOK, "change_password", "Change password", changePasswordContent{
			Forced: p.viewer.session.ForcePasswordChange,
			Dialog: form.ChangePasswordDialog("/change-password").View(),
		})
	}))

	r.Post("/change-password", s.handle(func(p *page) {
		d := form.ChangePasswordDialog("/change-password")
		values, err := form.ValuesFromRequest(p.r, d.Fields)
		if err != nil {
			http.Error(p.w, "Bad Request", http.StatusBadRequest)
			return
		}
		sess := p.viewer.session
		submitted, err := d.Submit(p.ctx(), values, func(ctx context.Context, in entity.ChangePasswordRequest) error {
			token, err := s.as.Auth.ChangePassword(ctx, sess.Token, in.CurrentPassword, in.NewPassword)
			if err != nil {
				p.notify(notify.Error(apiclient.Message(err, "Could not change password")))
				return err
			}
			return s.replaceToken(ctx, sess, token)
		})
		content := changePasswordContent{Forced: sess.ForcePasswordChange}
		switch {
		case !submitted:
			content.Dialog = d.View()
			p.render(http.StatusUnprocessableEntity, "change_password", "Change password", content)
			return
		case err != nil:
			if p.expired(err) {
				return
			}
			d.Open = true
			content.Dialog = d.View()
			p.render(http.StatusBadRequest, "change_password", "Change password", content)
			return
		}

		p.notify(notify.Success("Password changed"))
		payload, _ := jwt.Decode(sess.Token)
		home, ok := s.as.Policy.HomeFor(payload)
		if !ok {
			home = "/"
		}
		p.redirect(home)
	}))
}

// sessionExpiry is the earlier of the token expiry and the session TTL.
func (s *Server) sessionExpiry(payload *jwt.Payload, now time.Time) time.Time {
	expires := now.Add(s.as.Config.GetSessionTTL())
	if !payload.ExpiresAt.IsZero() && payload.ExpiresAt.Before(expires) {
		return payload.ExpiresAt
	}
	return expires
}

func (s *Server) startSession(ctx context.Context, token string) (*model.Session, error) {
	payload, err := jwt.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("(*Server).startSession: %w", err)
	}
	now := s.now()
	sess := &model.Session{
		Secret:              uuid.NewString(),
		UserID:              payload.Subject,
		OrganizationID:      payload.OrganizationID,
		Token:               token,
		ForcePasswordChange: payload.ForcePasswordChange,
		ExpiresAt:           s.sessionExpiry(payload, now),
		CreatedAt:           now,
	}
	sess.SetRoles(payload.Roles)
	if err := sess.Insert(ctx, s.as.BunDb); err != nil {
		return nil, fmt.Errorf("(*Server).startSession: %w", err)
	}
	return sess, nil
}

func (s *Server) replaceToken(ctx context.Context, sess *model.Session, token string) error {
	payload, err := jwt.Decode(token)
	if err != nil {
		return fmt.Errorf("(*Server).replaceToken: %w", err)
	}
	sess.Token = token
	sess.ForcePasswordChange = payload.ForcePasswordChange
	sess.ExpiresAt = s.sessionExpiry(payload, s.now())
	sess.SetRoles(payload.Roles)
	if err := sess.ReplaceToken(ctx, s.as.BunDb); err != nil {
		return fmt.Errorf("(*Server).replaceToken: %w", err)
	}
	return nil
}
