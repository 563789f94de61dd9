package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// patch 把任意 map 转成 UpdateStepData 使用的 partial
func patch(t *testing.T, fields map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		out[k] = b
	}
	return out
}

type recordingSaver struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (s *recordingSaver) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return s.err
}

func (s *recordingSaver) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type recordingNavigator struct {
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.paths = append(n.paths, path)
}

var errNetwork = errors.New("dial tcp: connection refused")

func pinnedNormalizer() *Normalizer {
	return NewNormalizer("Korea", NewLanguageResolver(DefaultSupportedLanguages, "en_US.UTF-8"))
}

// fillTravel 填满 travel 向导每一步需要的数据
func fillTravel(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.UpdateStepData(TargetProfile, patch(t, map[string]any{
		"name": "Mina", "age": 29, "gender": "female", "country": "France",
	})))
	require.NoError(t, c.UpdateStepData(TargetDomain, patch(t, map[string]any{
		"startDate": "2026-11-01", "endDate": "2026-11-10", "interestedCities": []string{"Seoul", "Busan"},
	})))
	require.NoError(t, c.UpdateStepData(TargetEmergency, patch(t, map[string]any{
		"contact": "+33 6 12 34 56 78",
	})))
}
