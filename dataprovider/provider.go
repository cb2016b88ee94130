// ABOUTME: Data provider translating admin CRUD calls into REST requests.
// ABOUTME: Targets /{resource}/ collections and /{resource}/{id}/ members with trailing slashes.

package dataprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/2389/restadmin/httpclient"
)

// Provider implements the admin data provider contract against one API.
// Errors from the HTTP client are returned unchanged.
type Provider struct {
	apiURL string
	client httpclient.Client
}

// New creates a provider for apiURL. A nil client defaults to
// httpclient.FetchJSON over http.DefaultClient.
func New(apiURL string, client httpclient.Client) *Provider {
	if client == nil {
		client = httpclient.FetchJSON(nil)
	}
	return &Provider{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: client,
	}
}

// URLForID resolves a record identifier to its member URL. Identifiers that
// already are the member URL, or its path, are used as given.
func (p *Provider) URLForID(resource string, id any) string {
	if s, ok := id.(string); ok {
		if strings.HasPrefix(s, p.apiURL+"/"+resource+"/") {
			return s
		}
		if strings.HasPrefix(s, "/"+resource+"/") {
			return p.apiURL + s
		}
	}
	return fmt.Sprintf("%s/%s/%s/", p.apiURL, resource, formatID(id))
}

func (p *Provider) collectionURL(resource string) string {
	return fmt.Sprintf("%s/%s/", p.apiURL, resource)
}

// GetList fetches one page of resource with filters, paging and ordering applied.
func (p *Provider) GetList(ctx context.Context, resource string, params GetListParams) (*ListResult, error) {
	query := mergeQueries(
		FilterQuery(params.Filter),
		PaginationQuery(params.Pagination),
		OrderingQuery(params.Sort),
	)
	return p.list(ctx, resource, query)
}

// GetOne fetches a single record by id.
func (p *Provider) GetOne(ctx context.Context, resource string, params GetOneParams) (*OneResult, error) {
	data, err := p.getOneJSON(ctx, resource, params.ID)
	if err != nil {
		return nil, err
	}
	return &OneResult{Data: data}, nil
}

// GetMany fetches every id concurrently. Data keeps the order of IDs; the
// first failure fails the whole call.
func (p *Provider) GetMany(ctx context.Context, resource string, params GetManyParams) (*ManyResult, error) {
	data := make([]Record, len(params.IDs))
	var g errgroup.Group
	for i, id := range params.IDs {
		g.Go(func() error {
			record, err := p.getOneJSON(ctx, resource, id)
			if err != nil {
				return err
			}
			data[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ManyResult{Data: data}, nil
}

// GetManyReference lists the records whose Target field equals ID.
func (p *Provider) GetManyReference(ctx context.Context, resource string, params GetManyReferenceParams) (*ListResult, error) {
	query := mergeQueries(
		FilterQuery(params.Filter),
		PaginationQuery(params.Pagination),
		OrderingQuery(params.Sort),
		Query{params.Target: params.ID},
	)
	return p.list(ctx, resource, query)
}

// Create POSTs a new record, as multipart form data when it carries a file.
func (p *Provider) Create(ctx context.Context, resource string, params CreateParams) (*OneResult, error) {
	resp, err := p.send(ctx, p.collectionURL(resource), http.MethodPost, params.Data)
	if err != nil {
		return nil, err
	}
	created, err := decodeRecord(resp)
	if err != nil {
		return nil, err
	}
	data := make(Record, len(created))
	for key, value := range created {
		data[key] = value
	}
	return &OneResult{Data: data}, nil
}

// Update PATCHes the record and returns the backend's copy.
func (p *Provider) Update(ctx context.Context, resource string, params UpdateParams) (*OneResult, error) {
	resp, err := p.send(ctx, p.URLForID(resource, params.ID), http.MethodPatch, params.Data)
	if err != nil {
		return nil, err
	}
	data, err := decodeRecord(resp)
	if err != nil {
		return nil, err
	}
	return &OneResult{Data: data}, nil
}

// UpdateMany sends the same PATCH to every id and returns the ids the
// backend reported back, in input order.
func (p *Provider) UpdateMany(ctx context.Context, resource string, params UpdateManyParams) (*IDsResult, error) {
	ids := make([]any, len(params.IDs))
	var g errgroup.Group
	for i, id := range params.IDs {
		g.Go(func() error {
			resp, err := p.send(ctx, p.URLForID(resource, id), http.MethodPatch, params.Data)
			if err != nil {
				return err
			}
			record, err := decodeRecord(resp)
			if err != nil {
				return err
			}
			ids[i] = record["id"]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &IDsResult{Data: ids}, nil
}

// Delete resolves with the caller's PreviousData, not the response body.
func (p *Provider) Delete(ctx context.Context, resource string, params DeleteParams) (*OneResult, error) {
	_, err := p.client.Do(ctx, p.URLForID(resource, params.ID), &httpclient.Options{Method: http.MethodDelete})
	if err != nil {
		return nil, err
	}
	return &OneResult{Data: params.PreviousData}, nil
}

// DeleteMany deletes every id concurrently and always returns an empty id list.
func (p *Provider) DeleteMany(ctx context.Context, resource string, params DeleteManyParams) (*IDsResult, error) {
	var g errgroup.Group
	for _, id := range params.IDs {
		g.Go(func() error {
			_, err := p.client.Do(ctx, p.URLForID(resource, id), &httpclient.Options{Method: http.MethodDelete})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &IDsResult{Data: []any{}}, nil
}

func (p *Provider) list(ctx context.Context, resource string, query Query) (*ListResult, error) {
	url := p.collectionURL(resource) + "?" + query.Encode()
	resp, err := p.client.Do(ctx, url, nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Results []Record `json:"results"`
		Count   int      `json:"count"`
	}
	if err := resp.DecodeJSON(&page); err != nil {
		return nil, err
	}
	return &ListResult{Data: page.Results, Total: page.Count}, nil
}

func (p *Provider) getOneJSON(ctx context.Context, resource string, id any) (Record, error) {
	resp, err := p.client.Do(ctx, p.URLForID(resource, id), nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(resp)
}

func (p *Provider) send(ctx context.Context, url, method string, data Record) (*httpclient.Response, error) {
	body, err := EncodeBody(data)
	if err != nil {
		return nil, err
	}
	return p.client.Do(ctx, url, &httpclient.Options{
		Method: method,
		Header: http.Header{"Content-Type": []string{body.ContentType}},
		Body:   body.Body,
	})
}

func decodeRecord(resp *httpclient.Response) (Record, error) {
	if len(resp.Body) == 0 && resp.JSON == nil {
		return Record{}, nil
	}
	var record Record
	if err := resp.DecodeJSON(&record); err != nil {
		return nil, err
	}
	return record, nil
}

func formatID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
