package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/southwestptfs/flightdeck/internal/apperr"
)

func fakeDiscord(t *testing.T, tokenStatus int) *Discord {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(tokenStatus)
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"99","username":"captain","discriminator":"0","avatar":"abc"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	d := NewDiscord("cid", "secret", "http://localhost/cb")
	d.TokenEndpoint = srv.URL + "/token"
	d.UserEndpoint = srv.URL + "/user"
	return d
}

func TestExchange(t *testing.T) {
	d := fakeDiscord(t, http.StatusOK)
	p, err := d.Exchange(context.Background(), "good")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if p.ID != "99" || p.Username != "captain" {
		t.Fatalf("profile = %+v", p)
	}
	if _, err := d.Exchange(context.Background(), "bad"); !errors.Is(err, ErrBadCode) {
		t.Fatalf("bad code = %v", err)
	}
}

func TestExchangeProviderDown(t *testing.T) {
	d := fakeDiscord(t, http.StatusBadGateway)
	_, err := d.Exchange(context.Background(), "good")
	if apperr.KindOf(err) != apperr.KindTransient {
		t.Fatalf("provider outage = %v", err)
	}
}

func TestAuthorizeURL(t *testing.T) {
	d := NewDiscord("cid", "secret", "http://localhost/cb")
	u, err := url.Parse(d.AuthorizeURL("st4te"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("state") != "st4te" || q.Get("client_id") != "cid" || q.Get("redirect_uri") != "http://localhost/cb" || q.Get("response_type") != "code" {
		t.Fatalf("authorize url = %s", u)
	}
	if !d.Configured() || (&Discord{}).Configured() {
		t.Fatal("Configured mismatch")
	}
}
