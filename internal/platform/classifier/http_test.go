package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestClassify_DecodesVerdict(t *testing.T) {
	var gotAuth string
	var gotInput Input
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotInput); err != nil {
			t.Fatalf("decode input: %v", err)
		}
		json.NewEncoder(w).Encode(Result{
			Level:            "high",
			AdditionalFlags:  []string{"dehydration"},
			PatientReply:     "Procure atendimento.",
			EscalationAdvice: "contact on-call physician",
		})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPConfig{URL: srv.URL, APIKey: "secret", Timeout: 5 * time.Second}, zerolog.New(os.Stderr))

	in := Input{
		SurgeryType: "hemorroidectomia",
		DayOffset:   7,
		Answers:     map[string]string{"pain": "9"},
		RuleFlags:   []string{"severe_pain"},
	}
	result, err := c.Classify(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotInput.SurgeryType != "hemorroidectomia" || gotInput.DayOffset != 7 {
		t.Errorf("unexpected input forwarded: %+v", gotInput)
	}
	if result.Level != "high" || len(result.AdditionalFlags) != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestClassify_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPConfig{URL: srv.URL, Timeout: 5 * time.Second}, zerolog.New(os.Stderr))
	if _, err := c.Classify(context.Background(), Input{}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestClassify_TimeoutBound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(Result{Level: "low"})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(HTTPConfig{URL: srv.URL, Timeout: 20 * time.Millisecond}, zerolog.New(os.Stderr))
	if _, err := c.Classify(context.Background(), Input{}); err == nil {
		t.Fatal("expected timeout error")
	}
}
