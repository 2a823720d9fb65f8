// Package persistence composes preference stores: the local sqlite store is
// authoritative, and a remote submitter mirrors saves to the backend when
// one is configured.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"graphlens/application/ports"
	apperrors "graphlens/pkg/errors"
)

// RemoteSubmitter mirrors label preferences to the backend persistence
// endpoint as a JSON object keyed by label.
type RemoteSubmitter struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

// NewRemoteSubmitter builds a submitter posting to the given endpoint.
func NewRemoteSubmitter(url string, timeout time.Duration, logger *zap.Logger) (*RemoteSubmitter, error) {
	if url == "" {
		return nil, apperrors.NewStructural("remote preference endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &RemoteSubmitter{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Submit posts one preference to the backend.
func (r *RemoteSubmitter) Submit(ctx context.Context, label, propertyName string) error {
	body, err := json.Marshal(map[string]string{label: propertyName})
	if err != nil {
		return apperrors.Wrap(err, "encoding preference")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, "building preference request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return apperrors.Wrap(err, "submitting preference")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewExternal(fmt.Sprintf("preference endpoint returned status %d", resp.StatusCode), nil)
	}
	return nil
}

// TeeStore writes preferences to the local store and mirrors them to the
// remote endpoint best-effort: remote failures are logged, not returned,
// because the local store is the source of truth for this process.
type TeeStore struct {
	local  ports.PreferenceStore
	remote *RemoteSubmitter
	logger *zap.Logger
}

var _ ports.PreferenceStore = (*TeeStore)(nil)

// NewTeeStore composes a local store with an optional remote mirror.
func NewTeeStore(local ports.PreferenceStore, remote *RemoteSubmitter, logger *zap.Logger) (*TeeStore, error) {
	if local == nil {
		return nil, apperrors.NewStructural("tee store requires a local preference store")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeeStore{local: local, remote: remote, logger: logger}, nil
}

// SavePreference writes locally, then mirrors remotely.
func (t *TeeStore) SavePreference(ctx context.Context, label, propertyName string) error {
	if err := t.local.SavePreference(ctx, label, propertyName); err != nil {
		return err
	}

	if t.remote != nil {
		if err := t.remote.Submit(ctx, label, propertyName); err != nil {
			t.logger.Warn("remote preference mirror failed",
				zap.String("label", label),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Preferences reads from the local store.
func (t *TeeStore) Preferences(ctx context.Context) (map[string]string, error) {
	return t.local.Preferences(ctx)
}
