package ledger

import (
	"context"
	"fmt"
	"strconv"

	"mealplan-backend/lib/restyutil"
	"mealplan-backend/services/searchlog"

	"github.com/go-resty/resty/v2"
)

// Client talks to a running ledger service. It never sends credentials,
// logins are run by the service's own clients.
type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	BaseUrl     string
	AccessToken string
	// Output receives a dump of every exchange when debug logging is on.
	Output restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetHeader("Content-Type", "application/json")
	if opts.AccessToken != "" {
		client.SetAuthToken(opts.AccessToken)
	}
	restyutil.InstrumentClient(client, tracer, opts.Output)
	return Client{http: client}
}

func responseError(res *resty.Response) error {
	body, ok := res.Error().(*errorBody)
	if ok && body.Error != "" {
		if body.Details != "" {
			return fmt.Errorf("%s: %s: %s", res.Status(), body.Error, body.Details)
		}
		return fmt.Errorf("%s: %s", res.Status(), body.Error)
	}
	return fmt.Errorf("unexpected response: %s", res.Status())
}

func (c Client) Health(ctx context.Context) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetError(&errorBody{}).
		Get("/health")
	if err != nil {
		return err
	}
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

func (c Client) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	var out UploadResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&errorBody{}).
		Post("/upload-transactions")
	if err != nil {
		return UploadResponse{}, err
	}
	if res.IsError() {
		return UploadResponse{}, responseError(res)
	}
	return out, nil
}

func (c Client) Searches(ctx context.Context, limit int) ([]searchlog.Entry, error) {
	var out struct {
		Searches []searchlog.Entry `json:"searches"`
	}
	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&errorBody{})
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	res, err := req.Get("/searches")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, responseError(res)
	}
	return out.Searches, nil
}

func (c Client) Search(ctx context.Context, id string) (searchlog.Entry, error) {
	var out searchlog.Entry
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		SetError(&errorBody{}).
		Get("/searches/{id}")
	if err != nil {
		return searchlog.Entry{}, err
	}
	if res.IsError() {
		return searchlog.Entry{}, responseError(res)
	}
	return out, nil
}
