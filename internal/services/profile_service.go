package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Vynetoob/Financeiro/internal/core"
)

// ProfileService manages user profiles and the partner linkage that joint
// transactions split against.
type ProfileService struct {
	profiles ProfileStore
}

func NewProfileService(profiles ProfileStore) *ProfileService {
	return &ProfileService{profiles: profiles}
}

// Get returns the session user's profile. A user who never saved anything
// gets a blank profile rather than a not-found error.
func (s *ProfileService) Get(ctx context.Context, session core.Session) (core.Profile, error) {
	if err := session.Validate(); err != nil {
		return core.Profile{}, err
	}
	profile, err := s.profiles.Get(ctx, session.UserID)
	if errors.Is(err, ErrNotFound) {
		return core.Profile{ID: session.UserID}, nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile %s: %w", session.UserID, err)
	}
	return profile, nil
}

// SaveUsername stores the user's display name, creating the profile row on
// first save.
func (s *ProfileService) SaveUsername(ctx context.Context, session core.Session, username string) (core.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return core.Profile{}, &core.ValidationError{Field: "username", Reason: "username must not be empty"}
	}
	profile, err := s.Get(ctx, session)
	if err != nil {
		return core.Profile{}, err
	}
	profile.Username = username
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return core.Profile{}, fmt.Errorf("save username for %s: %w", session.UserID, err)
	}
	return profile, nil
}

// LinkPartner links the session user and the partner bidirectionally: both
// profiles end up naming each other. The partner must already have a
// profile, cannot be the user themselves, and cannot be linked to a third
// user.
func (s *ProfileService) LinkPartner(ctx context.Context, session core.Session, partnerID string) (core.Profile, error) {
	if err := session.Validate(); err != nil {
		return core.Profile{}, err
	}
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return core.Profile{}, &core.ValidationError{Field: "partnerId", Reason: "partner id must not be empty"}
	}
	if partnerID == session.UserID {
		return core.Profile{}, &core.ValidationError{Field: "partnerId", Reason: "cannot link yourself as partner"}
	}

	partner, err := s.profiles.Get(ctx, partnerID)
	if errors.Is(err, ErrNotFound) {
		return core.Profile{}, &core.ValidationError{Field: "partnerId", Reason: "no profile exists for this partner id"}
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get partner profile %s: %w", partnerID, err)
	}
	if partner.PartnerID != "" && partner.PartnerID != session.UserID {
		return core.Profile{}, &core.ValidationError{Field: "partnerId", Reason: "partner is already linked to another user"}
	}

	profile, err := s.Get(ctx, session)
	if err != nil {
		return core.Profile{}, err
	}
	profile.PartnerID = partnerID
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return core.Profile{}, fmt.Errorf("link partner on %s: %w", session.UserID, err)
	}

	partner.PartnerID = session.UserID
	if err := s.profiles.Upsert(ctx, partner); err != nil {
		return core.Profile{}, fmt.Errorf("link partner on %s: %w", partnerID, err)
	}
	return profile, nil
}

// Resolve builds a session for a user, filling the partner id from the
// stored linkage. A missing profile resolves to a session with no partner.
func (s *ProfileService) Resolve(ctx context.Context, userID string) (core.Session, error) {
	session := core.Session{UserID: userID}
	if err := session.Validate(); err != nil {
		return core.Session{}, err
	}
	profile, err := s.Get(ctx, session)
	if err != nil {
		return core.Session{}, err
	}
	session.PartnerID = profile.PartnerID
	return session, nil
}
