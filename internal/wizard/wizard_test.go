package wizard

import (
	"errors"
	"testing"
	"time"

	"piktor/internal/model"
	"piktor/internal/prompt"
)

func completedInput() model.ProductInput {
	return model.ProductInput{
		Images: []model.UploadedImage{{ID: "img-1", Filename: "chair.jpg", ContentType: "image/jpeg", Data: []byte{0x01}}},
		Specs:  model.ProductSpecs{ProductName: "Oslo Armchair", ProductType: "armchair"},
	}
}

func TestAdvanceRequiresCompletedStep(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Create("user-1", "")

	_, err := store.Update("user-1", session.ID, func(s *Session) error { return s.Advance() })
	if !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("expected ErrStepIncomplete before input is set, got %v", err)
	}

	session, err = store.Update("user-1", session.ID, func(s *Session) error {
		s.SetInput(completedInput())
		return s.Advance()
	})
	if err != nil {
		t.Fatalf("expected advance after input completion, got %v", err)
	}
	if session.Step != StepContext {
		t.Fatalf("expected context step, got %s", session.Step)
	}

	// Context step gates on a chosen preset.
	_, err = store.Update("user-1", session.ID, func(s *Session) error { return s.Advance() })
	if !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("expected ErrStepIncomplete without a preset, got %v", err)
	}

	session, err = store.Update("user-1", session.ID, func(s *Session) error {
		s.SetSettings(model.UISettings{ContextPreset: model.PresetHero})
		if err := s.Advance(); err != nil {
			return err
		}
		return s.Advance()
	})
	if err != nil {
		t.Fatalf("expected to reach generate step, got %v", err)
	}
	if session.Step != StepGenerate {
		t.Fatalf("expected generate step, got %s", session.Step)
	}

	_, err = store.Update("user-1", session.ID, func(s *Session) error { return s.Advance() })
	if !errors.Is(err, ErrAtLastStep) {
		t.Fatalf("expected ErrAtLastStep, got %v", err)
	}
}

func TestAdvanceRequiresProductType(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Create("user-1", "")

	input := completedInput()
	input.Specs.ProductType = ""
	_, err := store.Update("user-1", session.ID, func(s *Session) error {
		s.SetInput(input)
		return s.Advance()
	})
	if !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("expected ErrStepIncomplete without a product type, got %v", err)
	}
}

func TestDefaultSettingsSurviveToGenerate(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Create("user-1", "")

	session, err := store.Update("user-1", session.ID, func(s *Session) error {
		s.SetInput(completedInput())
		if err := s.Advance(); err != nil {
			return err
		}
		s.SetContext(model.PresetPackshot)
		if err := s.Advance(); err != nil {
			return err
		}
		return s.Advance()
	})
	if err != nil {
		t.Fatalf("expected context-only session to reach generate, got %v", err)
	}
	if session.Step != StepGenerate {
		t.Fatalf("expected generate step, got %s", session.Step)
	}
	if err := prompt.ValidateSettings(session.Config.UISettings); err != nil {
		t.Fatalf("expected generation-ready settings, got %v", err)
	}
}

func TestSettingsStepRejectsInvalidSettings(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Create("user-1", "")

	_, err := store.Update("user-1", session.ID, func(s *Session) error {
		s.SetInput(completedInput())
		if err := s.Advance(); err != nil {
			return err
		}
		s.SetContext(model.PresetHero)
		if err := s.Advance(); err != nil {
			return err
		}
		s.SetSettings(model.UISettings{ContextPreset: model.PresetHero, BackgroundStyle: "neon"})
		return s.Advance()
	})
	if !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("expected ErrStepIncomplete for an unknown background style, got %v", err)
	}
}

func TestSetContextUnlocksContextStep(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Create("user-1", "")

	session, err := store.Update("user-1", session.ID, func(s *Session) error {
		s.SetInput(completedInput())
		if err := s.Advance(); err != nil {
			return err
		}
		s.SetContext(model.PresetLifestyle)
		return s.Advance()
	})
	if err != nil {
		t.Fatalf("expected context choice to unlock advance, got %v", err)
	}
	if session.Step != StepSettings {
		t.Fatalf("expected settings step, got %s", session.Step)
	}
	if session.Config.UISettings.ContextPreset != model.PresetLifestyle {
		t.Fatalf("expected lifestyle preset, got %s", session.Config.UISettings.ContextPreset)
	}
}

func TestBackKeepsData(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Create("user-1", "proj-1")

	session, err := store.Update("user-1", session.ID, func(s *Session) error {
		s.SetInput(completedInput())
		if err := s.Advance(); err != nil {
			return err
		}
		return s.Back()
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Step != StepInput {
		t.Fatalf("expected to be back on input, got %s", session.Step)
	}
	if session.Config.ProductInput.Specs.ProductName != "Oslo Armchair" {
		t.Fatal("expected input data to survive going back")
	}

	_, err = store.Update("user-1", session.ID, func(s *Session) error { return s.Back() })
	if !errors.Is(err, ErrAtFirstStep) {
		t.Fatalf("expected ErrAtFirstStep, got %v", err)
	}
}

func TestResetClearsConfig(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Create("user-1", "")

	session, err := store.Update("user-1", session.ID, func(s *Session) error {
		s.SetInput(completedInput())
		s.Reset()
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Step != StepInput || len(session.Config.ProductInput.Images) != 0 {
		t.Fatal("expected reset to clear collected data and return to input")
	}
}

func TestSessionsAreScopedPerUser(t *testing.T) {
	store := NewStore(time.Hour)
	session := store.Create("user-1", "")

	if _, err := store.Get("user-2", session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected another user's lookup to miss, got %v", err)
	}
	if _, err := store.Get("user-1", session.ID); err != nil {
		t.Fatalf("expected owner lookup to succeed, got %v", err)
	}
}

func TestExpiredSessionsEvicted(t *testing.T) {
	store := NewStore(time.Millisecond)
	stale := store.Create("user-1", "")
	time.Sleep(5 * time.Millisecond)

	// Creating another session triggers eviction of the stale one.
	store.Create("user-1", "")

	if _, err := store.Get("user-1", stale.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected stale session to be evicted, got %v", err)
	}
}
