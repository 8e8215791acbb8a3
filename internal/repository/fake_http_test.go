package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strategy-lab/pkg/httpclient"
)

type recordedCall struct {
	Method   string
	Endpoint string
	Query    map[string]string
	Body     interface{}
}

// fakeHTTPClient answers every call with one canned status and JSON body.
type fakeHTTPClient struct {
	status int
	body   string
	err    error
	calls  []recordedCall
}

func (f *fakeHTTPClient) reply(method, endpoint string, query map[string]string, body interface{}, result interface{}) (*httpclient.BaseResponse, error) {
	f.calls = append(f.calls, recordedCall{Method: method, Endpoint: endpoint, Query: query, Body: body})
	if f.err != nil {
		return nil, f.err
	}
	resp := &httpclient.BaseResponse{StatusCode: f.status, Body: []byte(f.body)}
	if resp.IsSuccess() && result != nil && f.body != "" {
		if err := json.Unmarshal([]byte(f.body), result); err != nil {
			return resp, errors.New("decode: " + err.Error())
		}
	}
	return resp, nil
}

func (f *fakeHTTPClient) Get(_ context.Context, endpoint string, queryParams map[string]string, _ map[string]string, result interface{}) (*httpclient.BaseResponse, error) {
	return f.reply("GET", endpoint, queryParams, nil, result)
}

func (f *fakeHTTPClient) Post(_ context.Context, endpoint string, body interface{}, _ map[string]string, result interface{}) (*httpclient.BaseResponse, error) {
	return f.reply("POST", endpoint, nil, body, result)
}

func (f *fakeHTTPClient) Put(_ context.Context, endpoint string, body interface{}, _ map[string]string, result interface{}) (*httpclient.BaseResponse, error) {
	return f.reply("PUT", endpoint, nil, body, result)
}

func (f *fakeHTTPClient) Delete(_ context.Context, endpoint string, _ map[string]string, result interface{}) (*httpclient.BaseResponse, error) {
	return f.reply("DELETE", endpoint, nil, nil, result)
}
