package htmlutil

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, src string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func TestOwnText(t *testing.T) {
	doc := parse(t, `<div class="show">
		10:30 AM
		<span>IMAX</span>
	</div>`)
	require.Equal(t, "10:30 AM", OwnText(doc.Find("div.show")))
	require.Equal(t, "", OwnText(doc.Find("div.missing")))
}

func TestJoinedText(t *testing.T) {
	doc := parse(t, `<div id="d">2h 10m <span>•</span> <a>Action</a>, <a>Drama</a> • UA13+</div>`)
	require.Equal(t, "2h 10m • Action , Drama • UA13+", JoinedText(doc.Find("#d"), " "))
}

func TestGetAnchors(t *testing.T) {
	doc := parse(t, `<div>
		<a href="/buytickets/1">  Buy
		tickets </a>
		<a>no href</a>
		<a href="https://example.com/x?y=1">X</a>
	</div>`)

	anchors := GetAnchors(context.Background(), doc.Find("a"))
	require.Equal(t, []Anchor{
		{Name: "Buy tickets", Href: "/buytickets/1"},
		{Name: "X", Href: "https://example.com/x?y=1"},
	}, anchors)
}

func TestClean(t *testing.T) {
	require.Equal(t, "PVR Grand Mall", Clean("\n\t PVR  Grand   Mall \n"))
}
