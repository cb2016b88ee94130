// ABOUTME: Authenticated HTTP client that attaches the stored token to requests.
// ABOUTME: Intended as the data provider's client so every CRUD call carries the session token.

package authprovider

import (
	"context"
	"net/http"

	"github.com/2389/restadmin/httpclient"
)

// OptionsFromToken builds request options carrying "Token <token>" from
// the session store. Without a session it returns empty options.
func (p *Provider) OptionsFromToken(ctx context.Context) (*httpclient.Options, error) {
	rec, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &httpclient.Options{}, nil
	}
	value := "Token " + rec.Token()
	return &httpclient.Options{
		Header: http.Header{"Authorization": []string{value}},
		User:   &httpclient.User{Authenticated: true, Token: value},
	}, nil
}

// Client wraps next so each call reads the token fresh from the session
// store and merges it under the caller's options; caller values win.
//
// On anonymous paths (see WithPathname) the call is made without a token.
func (p *Provider) Client(next httpclient.Client) httpclient.Client {
	if next == nil {
		next = httpclient.FetchJSON(p.http)
	}
	return httpclient.ClientFunc(func(ctx context.Context, url string, opts *httpclient.Options) (*httpclient.Response, error) {
		if p.IsAnonymous(PathnameFromContext(ctx)) {
			return next.Do(ctx, url, opts)
		}
		base, err := p.OptionsFromToken(ctx)
		if err != nil {
			return nil, err
		}
		return next.Do(ctx, url, mergeOptions(base, opts))
	})
}

func mergeOptions(base, override *httpclient.Options) *httpclient.Options {
	merged := *base
	if override == nil {
		return &merged
	}
	if override.Method != "" {
		merged.Method = override.Method
	}
	if override.Body != nil {
		merged.Body = override.Body
	}
	if override.User != nil {
		merged.User = override.User
	}
	if len(override.Header) > 0 {
		header := http.Header{}
		for key, values := range base.Header {
			header[key] = values
		}
		for key, values := range override.Header {
			header[key] = values
		}
		merged.Header = header
	}
	return &merged
}
