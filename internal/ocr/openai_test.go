package ocr

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/time/rate"
)

type scriptedTransport struct {
	statuses  []int
	bodies    []string
	gotBodies []string
	calls     int
}

func (tr *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	tr.gotBodies = append(tr.gotBodies, string(b))
	i := tr.calls
	tr.calls++
	return &http.Response{
		StatusCode: tr.statuses[i],
		Status:     http.StatusText(tr.statuses[i]),
		Body:       io.NopCloser(strings.NewReader(tr.bodies[i])),
		Header:     http.Header{},
	}, nil
}

func newTestVision(tr *scriptedTransport) *OpenAIVision {
	return &OpenAIVision{
		Key: "k", Model: "m",
		Client:     &http.Client{Transport: tr},
		Limiter:    rate.NewLimiter(rate.Inf, 1),
		MaxRetries: 3,
	}
}

func TestVisionRetryResendsFullBody(t *testing.T) {
	tr := &scriptedTransport{
		statuses: []int{429, 200},
		bodies:   []string{"", `{"choices":[{"message":{"content":"hello notes"}}]}`},
	}
	v := newTestVision(tr)

	res, err := v.Read(context.Background(), []byte("img-bytes"), "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello notes" {
		t.Fatalf("text %q", res.Text)
	}
	if tr.calls != 2 {
		t.Fatalf("calls=%d, want 2", tr.calls)
	}
	if len(tr.gotBodies[0]) == 0 {
		t.Fatal("first attempt sent empty body")
	}
	if tr.gotBodies[1] != tr.gotBodies[0] {
		t.Fatalf("retry body differs: first %d bytes, retry %d bytes",
			len(tr.gotBodies[0]), len(tr.gotBodies[1]))
	}
}

func TestVisionTerminalStatusStops(t *testing.T) {
	tr := &scriptedTransport{
		statuses: []int{500},
		bodies:   []string{"upstream broke"},
	}
	v := newTestVision(tr)

	if _, err := v.Read(context.Background(), []byte("img"), "image/png"); err == nil {
		t.Fatal("want error on 500")
	}
	if tr.calls != 1 {
		t.Fatalf("calls=%d, want 1 (5xx is terminal here)", tr.calls)
	}
}
