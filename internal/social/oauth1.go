package social

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// oauth1Signer produces OAuth 1.0a HMAC-SHA1 Authorization headers, the
// scheme the v2 write endpoints require for user-context requests.
type oauth1Signer struct {
	consumerKey    string
	consumerSecret string
	token          string
	tokenSecret    string
}

func (s *oauth1Signer) sign(req *http.Request) error {
	nonce, err := genNonce()
	if err != nil {
		return err
	}

	params := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(time.Now().Unix(), 10),
		"oauth_token":            s.token,
		"oauth_version":          "1.0",
	}

	// Signature base includes oauth params plus query params. RFC 5849
	// excludes non-form request bodies, so JSON payloads are not signed.
	all := map[string]string{}
	for k, v := range params {
		all[k] = v
	}
	for k, vs := range req.URL.Query() {
		if len(vs) > 0 {
			all[k] = vs[0]
		}
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(all[k]))
	}

	baseURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	base := strings.Join([]string{
		req.Method,
		percentEncode(baseURL),
		percentEncode(strings.Join(pairs, "&")),
	}, "&")

	mac := hmac.New(sha1.New, []byte(percentEncode(s.consumerSecret)+"&"+percentEncode(s.tokenSecret)))
	mac.Write([]byte(base))
	params["oauth_signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	var header []string
	for _, k := range []string{
		"oauth_consumer_key", "oauth_nonce", "oauth_signature",
		"oauth_signature_method", "oauth_timestamp", "oauth_token", "oauth_version",
	} {
		header = append(header, fmt.Sprintf("%s=%q", percentEncode(k), percentEncode(params[k])))
	}
	req.Header.Set("Authorization", "OAuth "+strings.Join(header, ", "))
	return nil
}

func genNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("oauth nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// percentEncode implements RFC 3986 encoding as OAuth 1.0a requires;
// url.QueryEscape differs on spaces and some reserved characters.
func percentEncode(s string) string {
	var sb strings.Builder
	for _, b := range []byte(s) {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9',
			b == '-', b == '.', b == '_', b == '~':
			sb.WriteByte(b)
		default:
			sb.WriteString(fmt.Sprintf("%%%02X", b))
		}
	}
	return sb.String()
}
