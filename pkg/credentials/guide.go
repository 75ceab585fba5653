package credentials

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide prints how to copy a site's session cookies from a browser
func WriteCookieGuide(w io.Writer, site, homePage string) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "SESSION COOKIES FOR %s\n", strings.ToUpper(site))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "1. Open %s in your browser and log in to the fan club.\n", homePage)
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on Mac) and select the Network tab.")
	fmt.Fprintln(w, "3. Reload the page and click the first request to the site.")
	fmt.Fprintln(w, "4. Under Request Headers, copy the whole value of the Cookie: line.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Paste it as-is, e.g.  name1=value1; name2=value2")
	fmt.Fprintf(w, "Alternatively export it in %s.\n", EnvVar(site))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "These cookies grant access to your account. Do not share them.")
	fmt.Fprintln(w, rule)
}
