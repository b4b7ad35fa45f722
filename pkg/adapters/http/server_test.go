package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/guidebook/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Plan(ctx context.Context) (*domain.Plan, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*domain.Plan)
	return p, args.Error(1)
}

func (m *MockPlanner) Choose(ctx context.Context, key string, answer domain.Answer) error {
	return m.Called(ctx, key, answer).Error(0)
}

func (m *MockPlanner) Reject(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockPlanner) Choices(ctx context.Context) (*domain.ChoiceState, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*domain.ChoiceState)
	return s, args.Error(1)
}

func osPlan() *domain.Plan {
	c := &domain.Choice{Group: "os", Context: "os", Title: "OS", Parts: []domain.ChoicePart{
		{Title: "Linux", Body: domain.Seq(&domain.Leaf{ID: "l"})},
		{Title: "macOS", Member: 1, Body: domain.Seq(&domain.Leaf{ID: "m"})},
	}}
	return &domain.Plan{
		Tree:     domain.Seq(c),
		Frontier: []domain.FrontierEntry{{Choice: c}, {}},
		Status:   domain.StatusBlank,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	rr := do(t, NewHandler(nil), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestGetInfo(t *testing.T) {
	rr := do(t, NewHandler(nil), "GET", "/info", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "guidebook-http", resp["app"])
	assert.NotEmpty(t, resp["version"])
}

func TestGetPlan(t *testing.T) {
	p := new(MockPlanner)
	p.On("Plan", mock.Anything).Return(osPlan(), nil)

	rr := do(t, NewHandler(p), "GET", "/plan", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Tree     domain.NodeView `json:"tree"`
		Frontier []struct {
			Choice *domain.NodeView `json:"choice"`
		} `json:"frontier"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, domain.KindSequence, resp.Tree.Kind)
	require.NotNil(t, resp.Frontier[0].Choice)
	assert.Equal(t, "os", resp.Frontier[0].Choice.Context)
}

func TestGetGraph(t *testing.T) {
	p := new(MockPlanner)
	p.On("Plan", mock.Anything).Return(osPlan(), nil)

	rr := do(t, NewHandler(p), "GET", "/graph", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "graph TD")
	assert.Contains(t, rr.Body.String(), "class n1 current;")
}

func TestPutChoice(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		answer domain.Answer
	}{
		{"Single", `{"answer": "Linux"}`, domain.SingleAnswer("Linux")},
		{"Multi", `{"titles": ["a", "b"]}`, domain.MultiAnswer([]string{"a", "b"})},
		{"Form", `{"fields": {"port": "8080"}}`, domain.FormAnswer(map[string]string{"port": "8080"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockPlanner)
			p.On("Choose", mock.Anything, "os", tt.answer).Return(nil)
			p.On("Plan", mock.Anything).Return(osPlan(), nil)

			rr := do(t, NewHandler(p), "PUT", "/choices/os", tt.body)
			assert.Equal(t, http.StatusOK, rr.Code)
			p.AssertExpectations(t)
		})
	}
}

func TestPutChoice_Errors(t *testing.T) {
	t.Run("Bad JSON", func(t *testing.T) {
		rr := do(t, NewHandler(new(MockPlanner)), "PUT", "/choices/os", "{")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Ambiguous Body", func(t *testing.T) {
		rr := do(t, NewHandler(new(MockPlanner)), "PUT", "/choices/os", `{"answer": "a", "titles": ["b"]}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Too Large", func(t *testing.T) {
		body := `{"answer": "` + strings.Repeat("a", 5000) + `"}`
		rr := do(t, NewHandler(new(MockPlanner)), "PUT", "/choices/os", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unresolved", func(t *testing.T) {
		p := new(MockPlanner)
		p.On("Choose", mock.Anything, "os", domain.SingleAnswer("BeOS")).Return(domain.ErrUnresolvedChoice)
		rr := do(t, NewHandler(p), "PUT", "/choices/os", `{"answer": "BeOS"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestDeleteChoice(t *testing.T) {
	p := new(MockPlanner)
	p.On("Reject", mock.Anything, "os").Return(nil)

	rr := do(t, NewHandler(p), "DELETE", "/choices/os", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	p.AssertExpectations(t)
}

func TestGetChoices(t *testing.T) {
	state := domain.NewChoiceState("dev")
	state.Set("os", "Linux", false)
	p := new(MockPlanner)
	p.On("Choices", mock.Anything).Return(state, nil)

	rr := do(t, NewHandler(p), "GET", "/choices", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Linux")
}

func TestMetricsMount(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("guidebook_decisions_total 1"))
	})
	assert.Equal(t, http.StatusNotFound, do(t, NewHandler(nil), "GET", "/metrics", "").Code)

	rr := do(t, NewHandler(nil, WithMetrics(metrics)), "GET", "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "guidebook_decisions_total")
}

func TestSubscribeEvents(t *testing.T) {
	sm := NewStreamManager()
	srv := httptest.NewServer(NewHandler(nil, WithStreams(sm)))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?watch=decision", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return sm.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	hooks := sm.Hooks()
	hooks.OnLeafStart(ctx, &domain.LeafEvent{LeafID: "filtered"})
	hooks.OnDecision(ctx, &domain.DecisionEvent{Context: "os", Answer: "Linux"})

	var got []string
	for len(got) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: decision") || strings.HasPrefix(line, "data: {") {
			got = append(got, line)
		}
	}
	assert.Equal(t, "event: decision\n", got[0])
	assert.Contains(t, got[1], `"context":"os"`)
}

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe()
	assert.Equal(t, 1, sm.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, sm.Subscribers())
	_, ok := <-ch
	assert.False(t, ok)

	sm.Broadcast(Event{Type: domain.EventDecision})
}
