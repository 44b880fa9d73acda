package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteTokenGuide prints how to obtain a market access token
func WriteTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "CATALOG ACCESS TOKEN")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "catalogsync reads the shop catalog through the VK API and needs a token")
	fmt.Fprintln(w, "with the 'market' and 'photos' scopes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Open https://vk.com/apps?act=manage and create a Standalone app.")
	fmt.Fprintln(w, "2. Note the app ID shown under Settings.")
	fmt.Fprintln(w, "3. Open this URL while logged in as a community admin:")
	fmt.Fprintln(w, "   https://oauth.vk.com/authorize?client_id=<APP_ID>&scope=market,photos,offline")
	fmt.Fprintln(w, "   &redirect_uri=https://oauth.vk.com/blank.html&response_type=token&v=5.199")
	fmt.Fprintln(w, "4. Copy the access_token value from the redirected address bar.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Save it with:")
	fmt.Fprintln(w, "   catalogsync auth set-token")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "or export CATALOGSYNC_ACCESS_TOKEN for one-off runs.")
	fmt.Fprintln(w, "The owner ID of a community catalog is negative, e.g. -12345.")
	fmt.Fprintln(w, rule)
}
