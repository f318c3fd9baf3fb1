package state

import (
	"encoding/json"
	"log/slog"

	"github.com/pavelanni/mentor/internal/model"
)

// LoadOnboarding returns the saved onboarding draft, or an empty one.
func (m *Manager) LoadOnboarding() model.OnboardingDraft {
	var d model.OnboardingDraft
	data, err := m.storage.Get(OnboardingKey)
	if err != nil {
		slog.Error("failed to read onboarding draft", "error", err)
		return d
	}
	if data == nil {
		return d
	}
	if err := json.Unmarshal(data, &d); err != nil {
		slog.Warn("discarding corrupt onboarding draft", "error", err)
		return model.OnboardingDraft{}
	}
	return d
}

// SaveOnboarding overwrites the onboarding draft. Failures are logged.
func (m *Manager) SaveOnboarding(d model.OnboardingDraft) {
	data, err := json.Marshal(d)
	if err != nil {
		persistFailures.WithLabelValues("marshal").Inc()
		slog.Error("failed to serialize onboarding draft", "error", err)
		return
	}
	if err := m.storage.Put(OnboardingKey, data); err != nil {
		persistFailures.WithLabelValues("write").Inc()
		slog.Error("failed to persist onboarding draft", "error", err)
	}
}

// ClearOnboarding deletes the onboarding draft.
func (m *Manager) ClearOnboarding() {
	if err := m.storage.Delete(OnboardingKey); err != nil {
		slog.Error("failed to delete onboarding draft", "error", err)
	}
}
