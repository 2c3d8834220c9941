package datafactory

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListLinkedServicesPagination(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Query().Get("page") {
		case "":
			require.Equal(t, "/subscriptions/sub/resourceGroups/rg/providers/Microsoft.DataFactory/factories/f/linkedservices", r.URL.Path)
			fmt.Fprintf(w, `{
				"value": [{"name": "bq", "properties": {"type": "GoogleBigQuery"}}],
				"nextLink": "%s/subscriptions/sub/resourceGroups/rg/providers/Microsoft.DataFactory/factories/f/linkedservices?api-version=2018-06-01&page=2"
			}`, ts.URL)
		case "2":
			fmt.Fprintln(w, `{"value": [{"name": "blob", "properties": {"type": "AzureBlobStorage"}}]}`)
		default:
			t.Fatalf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer ts.Close()

	c, err := NewWithEndpoint(ts.URL, "sub", "rg", "f", &staticCredential{token: "foo-token"})
	require.NoError(t, err)

	output, err := c.ListLinkedServices(context.Background(), &ListLinkedServicesInput{})
	require.NoError(t, err)
	require.Len(t, output.LinkedServices, 2)
	require.Equal(t, "bq", output.LinkedServices[0].Name)
	require.Equal(t, LinkedServiceTypeGoogleBigQuery, output.LinkedServices[0].Properties.Type)
	require.Equal(t, "blob", output.LinkedServices[1].Name)
}
