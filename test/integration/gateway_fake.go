package integration

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

// fakeMercadoPago serves the subset of the Mercado Pago API the client uses.
type fakeMercadoPago struct {
	mu       sync.Mutex
	next     int
	payments map[string]fakePayment
	refunds  []string
}

type fakePayment struct {
	status    string
	reference string
}

func newFakeMercadoPago(t *testing.T) (*fakeMercadoPago, *httptest.Server) {
	t.Helper()

	fake := &fakeMercadoPago{next: 1000, payments: map[string]fakePayment{}}
	srv := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(srv.Close)
	return fake, srv
}

func (f *fakeMercadoPago) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/payments":
		var body bytes.Buffer
		body.ReadFrom(r.Body)
		f.next++
		id := fmt.Sprint(f.next)
		f.payments[id] = fakePayment{status: "pending", reference: gjson.GetBytes(body.Bytes(), "external_reference").String()}
		fmt.Fprintf(w, `{"id":%s,"status":"pending","point_of_interaction":{"transaction_data":{"qr_code":"pix-%s","qr_code_base64":"aW1n"}}}`, id, id)

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/refunds"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/payments/"), "/refunds")
		f.refunds = append(f.refunds, id)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"status":"approved"}`)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payments/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/payments/")
		p, ok := f.payments[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"not found"}`)
			return
		}
		fmt.Fprintf(w, `{"id":%s,"status":%q,"external_reference":%q,"transaction_amount":24.00}`, id, p.status, p.reference)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeMercadoPago) setStatus(id, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.payments[id]
	p.status = status
	f.payments[id] = p
}

func (f *fakeMercadoPago) refunded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.refunds...)
}
