package brasilapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCNPJ_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cnpj/v1/12345678000195", r.URL.Path)
		json.NewEncoder(w).Encode(Company{
			CNPJ:      "12345678000195",
			LegalName: "CLINICA SORRISO LTDA",
			TradeName: "Clínica Sorriso",
			Phone1:    "1133332222",
			City:      "SAO PAULO",
			State:     "SP",
			Partners: []Partner{
				{Name: "MARIA SOUZA", Role: "Sócio-Administrador"},
				{Name: "JOSE SOUZA", Role: "Sócio"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.LookupCNPJ(context.Background(), "12345678000195")

	require.NoError(t, err)
	assert.Equal(t, "CLINICA SORRISO LTDA", got.LegalName)
	require.Len(t, got.Partners, 2)
	assert.Equal(t, "MARIA SOUZA", got.Partners[0].Name)
}

func TestLookupCNPJ_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"CNPJ não encontrado"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.LookupCNPJ(context.Background(), "00000000000000")

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestLookupCNPJ_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.LookupCNPJ(context.Background(), "12345678000195")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
