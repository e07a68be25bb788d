package meteofrance

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hppeng/hpp-platform/internal/domain"
)

func newTestClient(t *testing.T, orderBody string, orderStatus int) (*Client, *string) {
	t.Helper()

	var fetchedOrderID string
	mux := http.NewServeMux()
	mux.HandleFunc("/order", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		w.WriteHeader(orderStatus)
		fmt.Fprint(w, orderBody)
	})
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		fetchedOrderID = r.URL.Query().Get("id-cmde")
		fmt.Fprint(w, "DATE;HHMN;RR6\n20240115;0006;1,5\n")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient("secret", Options{
		OrderURL: srv.URL + "/order",
		FileURL:  srv.URL + "/file",
	}), &fetchedOrderID
}

func window() (time.Time, time.Time) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func TestRequestExtractOrderIDShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"top-level return", `{"return": "2024001"}`, "2024001"},
		{"top-level numeric return", `{"return": 2024001}`, "2024001"},
		{"wrapped return", `{"elaboreProduitAvecDemandeResponse": {"return": "778899"}}`, "778899"},
		{"id-cmde fallback", `{"id-cmde": "445566"}`, "445566"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, gotOrderID := newTestClient(t, tc.body, http.StatusOK)
			start, end := window()

			payload, err := client.RequestExtract(context.Background(), "70473001", start, end)

			require.NoError(t, err)
			assert.Equal(t, tc.want, *gotOrderID)
			assert.Contains(t, string(payload), "RR6")
		})
	}
}

func TestRequestExtractShapePriority(t *testing.T) {
	// When several shapes are present the top-level scalar wins.
	body := `{"return": "first", "elaboreProduitAvecDemandeResponse": {"return": "second"}, "id-cmde": "third"}`
	client, gotOrderID := newTestClient(t, body, http.StatusOK)
	start, end := window()

	_, err := client.RequestExtract(context.Background(), "70473001", start, end)

	require.NoError(t, err)
	assert.Equal(t, "first", *gotOrderID)
}

func TestRequestExtractUnknownShape(t *testing.T) {
	client, _ := newTestClient(t, `{"something": "else"}`, http.StatusOK)
	start, end := window()

	_, err := client.RequestExtract(context.Background(), "70473001", start, end)

	var protoErr *domain.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "70473001", protoErr.StationCode)
	assert.Contains(t, protoErr.Body, "something")
}

func TestRequestExtractOrderFailure(t *testing.T) {
	client, _ := newTestClient(t, `{"error": "bad station"}`, http.StatusBadRequest)
	start, end := window()

	_, err := client.RequestExtract(context.Background(), "999", start, end)

	var protoErr *domain.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, http.StatusBadRequest, protoErr.Status)
	assert.Equal(t, "999", protoErr.StationCode)
	// The operator needs the requested window in the message.
	assert.Contains(t, protoErr.Error(), "2024-01-15T00:00:00Z")
	assert.Contains(t, protoErr.Error(), "2024-01-16T00:00:00Z")
}

func TestExtractOrderIDRejectsNonScalar(t *testing.T) {
	_, ok := extractOrderID([]byte(`{"return": {"nested": true}}`))
	assert.False(t, ok)

	_, ok = extractOrderID([]byte(`not json`))
	assert.False(t, ok)
}
