package detector

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/chromara/hq/internal/agent"
)

func TestHeuristic_ShouldPromote(t *testing.T) {
	t.Parallel()

	longText := "<html><body>" + strings.Repeat("<p>Jane Doe - CEO of a company with a real about page.</p>", 60) + "</body></html>"
	shell := "<html><body><div>" + strings.Repeat(" ", 3000) + "</div><p>Loading</p></body></html>"

	tests := []struct {
		name string
		resp agent.FetchResponse
		want bool
	}{
		{name: "empty body", resp: agent.FetchResponse{StatusCode: 200}, want: true},
		{name: "next marker", resp: agent.FetchResponse{StatusCode: 200, Body: []byte(`<div id="__next"></div>`)}, want: true},
		{name: "angular marker", resp: agent.FetchResponse{StatusCode: 200, Body: []byte(`<app-root ng-version="17.0.0"></app-root>`)}, want: true},
		{name: "script dense small page", resp: agent.FetchResponse{StatusCode: 200, Body: []byte(`<html><script>var a=1;</script><p>t</p></html>`)}, want: true},
		{name: "small static page", resp: agent.FetchResponse{StatusCode: 200, Body: []byte(`<html><body><p>Jane Doe - CEO and founder</p></body></html>`)}, want: false},
		{name: "large page with text", resp: agent.FetchResponse{StatusCode: 200, Body: []byte(longText)}, want: false},
		{name: "large empty shell", resp: agent.FetchResponse{StatusCode: 200, Body: []byte(shell)}, want: true},
		{name: "non 200", resp: agent.FetchResponse{StatusCode: 404, Body: []byte("not found")}, want: false},
		{name: "already headless", resp: agent.FetchResponse{StatusCode: 200, UsedHeadless: true}, want: false},
	}

	h := NewHeuristic(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, h.ShouldPromote(tt.resp))
		})
	}
}

func TestHeuristic_MountsAndNoscript(t *testing.T) {
	t.Parallel()

	h := NewHeuristic(0)
	cases := map[string]bool{
		`<body><div id="root"></div><script src="/app.js"></script></body>`:                true,
		`<body><div id="root"><p>Server rendered team page</p></div></body>`:               false,
		`<body><noscript>Please Enable JavaScript to continue.</noscript><p>hi</p></body>`: true,
	}
	for body, want := range cases {
		require.Equal(t, want, h.ShouldPromote(agent.FetchResponse{StatusCode: 200, Body: []byte(body)}), body)
	}
}

func TestScriptShare(t *testing.T) {
	t.Parallel()

	share := func(html string) int {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		require.NoError(t, err)
		return scriptShare(doc, len(html))
	}
	require.Zero(t, scriptShare(nil, 0))
	require.Zero(t, share("<p>plain</p>"))
	require.Equal(t, 100, share("<script>x</script>"))
	require.Equal(t, 100, share("<script>never closed"))
}
