package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Vynetoob/Financeiro/internal/core"
)

func TestLinkPartnerLinksBothProfiles(t *testing.T) {
	store := newMemProfileStore()
	store.profiles["user-b"] = core.Profile{ID: "user-b", Username: "B"}
	svc := NewProfileService(store)

	profile, err := svc.LinkPartner(context.Background(), core.Session{UserID: "user-a"}, "user-b")
	if err != nil {
		t.Fatalf("LinkPartner: %v", err)
	}
	if profile.PartnerID != "user-b" {
		t.Errorf("own partner = %q, want user-b", profile.PartnerID)
	}

	partner, err := store.Get(context.Background(), "user-b")
	if err != nil {
		t.Fatalf("get partner profile: %v", err)
	}
	if partner.PartnerID != "user-a" {
		t.Errorf("partner side = %q, want user-a (link must be bidirectional)", partner.PartnerID)
	}
}

func TestLinkPartnerRejectsSelf(t *testing.T) {
	svc := NewProfileService(newMemProfileStore())

	_, err := svc.LinkPartner(context.Background(), core.Session{UserID: "user-a"}, "user-a")
	var validation *core.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("self link error = %v, want validation error", err)
	}
}

func TestLinkPartnerRequiresExistingPartner(t *testing.T) {
	svc := NewProfileService(newMemProfileStore())

	_, err := svc.LinkPartner(context.Background(), core.Session{UserID: "user-a"}, "nobody")
	var validation *core.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("unknown partner error = %v, want validation error", err)
	}
}

func TestLinkPartnerRejectsTakenPartner(t *testing.T) {
	store := newMemProfileStore()
	store.profiles["user-b"] = core.Profile{ID: "user-b", PartnerID: "user-c"}
	svc := NewProfileService(store)

	_, err := svc.LinkPartner(context.Background(), core.Session{UserID: "user-a"}, "user-b")
	var validation *core.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("taken partner error = %v, want validation error", err)
	}
}

func TestLinkPartnerRelinkSamePairSucceeds(t *testing.T) {
	store := newMemProfileStore()
	store.profiles["user-a"] = core.Profile{ID: "user-a", PartnerID: "user-b"}
	store.profiles["user-b"] = core.Profile{ID: "user-b", PartnerID: "user-a"}
	svc := NewProfileService(store)

	if _, err := svc.LinkPartner(context.Background(), core.Session{UserID: "user-a"}, "user-b"); err != nil {
		t.Fatalf("relinking the same pair: %v", err)
	}
}

func TestSaveUsernameCreatesProfile(t *testing.T) {
	store := newMemProfileStore()
	svc := NewProfileService(store)

	profile, err := svc.SaveUsername(context.Background(), core.Session{UserID: "user-a"}, "  Alice  ")
	if err != nil {
		t.Fatalf("SaveUsername: %v", err)
	}
	if profile.Username != "Alice" {
		t.Errorf("username = %q, want trimmed Alice", profile.Username)
	}
	if _, err := store.Get(context.Background(), "user-a"); err != nil {
		t.Errorf("profile row not created: %v", err)
	}
}

func TestSaveUsernameRejectsBlank(t *testing.T) {
	svc := NewProfileService(newMemProfileStore())

	_, err := svc.SaveUsername(context.Background(), core.Session{UserID: "user-a"}, "   ")
	var validation *core.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("blank username error = %v, want validation error", err)
	}
}

func TestResolveUsesStoredLink(t *testing.T) {
	store := newMemProfileStore()
	store.profiles["user-a"] = core.Profile{ID: "user-a", PartnerID: "user-b"}
	svc := NewProfileService(store)

	session, err := svc.Resolve(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if session.PartnerID != "user-b" {
		t.Errorf("resolved partner = %q, want user-b", session.PartnerID)
	}

	session, err = svc.Resolve(context.Background(), "user-c")
	if err != nil {
		t.Fatalf("Resolve without profile: %v", err)
	}
	if session.PartnerID != "" {
		t.Errorf("partner for unknown user = %q, want empty", session.PartnerID)
	}
}
