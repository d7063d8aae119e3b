package proxypool

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const proxyTableFixture = `
<table id="proxylisttable">
	<tbody>
		<tr>
			<td>203.0.113.10</td><td>8080</td><td>US</td><td>United States</td>
			<td>elite proxy</td><td>no</td><td>yes</td><td>1 min ago</td>
		</tr>
		<tr>
			<td>198.51.100.7</td><td>3128</td><td>DE</td><td>Germany</td>
			<td>anonymous</td><td>no</td><td>no</td><td>2 mins ago</td>
		</tr>
		<tr>
			<td>not-an-ip</td><td>8080</td><td>US</td><td>United States</td>
			<td>elite proxy</td><td>no</td><td>yes</td><td>1 min ago</td>
		</tr>
		<tr>
			<td>192.0.2.44</td><td>443</td><td>FR</td><td>France</td>
			<td>elite proxy</td><td>yes</td><td>Yes</td><td>5 mins ago</td>
		</tr>
		<tr>
			<td>192.0.2.99</td><td>80</td>
		</tr>
	</tbody>
</table>
`

func TestParseProxyTable(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(proxyTableFixture))
	require.NoError(t, err)

	proxies := ParseProxyTable(doc)
	require.Equal(t, []Proxy{
		{Host: "203.0.113.10", Port: "8080"},
		{Host: "192.0.2.44", Port: "443"},
	}, proxies)
}

func TestProxyAddr(t *testing.T) {
	p := Proxy{Host: "203.0.113.10", Port: "8080"}
	require.Equal(t, "203.0.113.10:8080", p.Addr())
}

func TestParseProxyTableEmptyDocument(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html></html>"))
	require.NoError(t, err)
	require.Empty(t, ParseProxyTable(doc))
}
