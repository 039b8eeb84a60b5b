package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chromara/hq/internal/contacts"
)

type contactsOutput struct {
	Domain   string             `json:"domain"`
	Contacts []contacts.Contact `json:"contacts"`
}

func runRoot(t *testing.T, args ...string) (contactsOutput, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return contactsOutput{}, err
	}
	var decoded contactsOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	return decoded, nil
}

func TestContactsFromTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.txt")
	require.NoError(t, os.WriteFile(path, []byte("Jane Doe - CEO\nhello@acme.io\n"), 0o600))

	got, err := runRoot(t, "contacts", "--domain", "www.acme.io", "--file", path)
	require.NoError(t, err)
	require.Equal(t, "acme.io", got.Domain)
	require.Equal(t, []contacts.Contact{
		{Name: "hello", Title: "Contact", Email: "hello@acme.io", Confidence: 0.5},
		{Name: "Jane Doe", Title: "CEO", Confidence: 0.6},
	}, got.Contacts)
}

func TestContactsFromHTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.html")
	page := `<html><body><script>var x = "spam@acme.io"</script>
<p>Ann Lee - CTO</p><footer><a href="mailto:press@acme.io">Press</a></footer></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(page), 0o600))

	got, err := runRoot(t, "contacts", "--domain", "acme.io", "--file", path)
	require.NoError(t, err)
	require.Len(t, got.Contacts, 2)
	require.Equal(t, "press@acme.io", got.Contacts[0].Email)
	require.Equal(t, "Ann Lee", got.Contacts[1].Name)
}

func TestContactsFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>Bob Stone - Founder</p></body></html>`))
	}))
	defer srv.Close()

	got, err := runRoot(t, "contacts", "--url", srv.URL, "--domain", "stone.io")
	require.NoError(t, err)
	require.Equal(t, []contacts.Contact{{Name: "Bob Stone", Title: "Founder", Confidence: 0.6}}, got.Contacts)
}

func TestContactsFlagValidation(t *testing.T) {
	_, err := runRoot(t, "contacts", "--domain", "acme.io")
	require.ErrorContains(t, err, "exactly one of")

	_, err = runRoot(t, "contacts", "--file", "x.txt")
	require.Error(t, err)
}
