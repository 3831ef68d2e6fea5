//go:build integration

package integration

import (
	"net/http"
	"testing"
)

type product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type productListResponse struct {
	Data []product `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestProxyForwardsBackendResponses(t *testing.T) {
	resp := doGet(t, "/api/product")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[productListResponse](t, resp)
	if len(body.Data) != 2 {
		t.Fatalf("expected 2 products, got %d", len(body.Data))
	}
	if body.Data[0].ID != "p1" || body.Data[0].Price != "6.50" {
		t.Fatalf("unexpected first product: %+v", body.Data[0])
	}
}

func TestProxyPassesThroughBackendErrors(t *testing.T) {
	resp := doGet(t, "/api/product/does-not-exist")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %q", body.Error.Code)
	}
	if body.Error.Message != "product not found" {
		t.Fatalf("unexpected message: %q", body.Error.Message)
	}
}

func TestProxySetsForwardedHeaders(t *testing.T) {
	resp := doGet(t, "/api/product")
	resp.Body.Close()

	headers := lastBackendHeaders()
	if headers.Get("X-Forwarded-For") == "" {
		t.Fatal("backend did not receive X-Forwarded-For")
	}
	if headers.Get("X-Forwarded-Proto") != "http" {
		t.Fatalf("unexpected X-Forwarded-Proto: %q", headers.Get("X-Forwarded-Proto"))
	}
}
