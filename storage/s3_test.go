package storage

import (
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebmatecho/sipsa-tracker/utils"
)

const (
	testEndpoint = "http://s3.test"
	testBucket   = "sipsa"
)

func newMockS3Store(t *testing.T) (*S3Store, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(testEndpoint),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
		HTTPClient:   &http.Client{Transport: mt},
	})
	return &S3Store{client: client, bucket: testBucket}, mt
}

func objectURL(key string) string {
	return testEndpoint + "/" + testBucket + "/" + key
}

const noSuchKeyXML = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

func xmlResponder(status int, body string) httpmock.Responder {
	return func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/xml")
		return resp, nil
	}
}

func TestS3ExistsMissingKey(t *testing.T) {
	s, mt := newMockS3Store(t)
	mt.RegisterResponder(http.MethodHead, objectURL("files_tracker.csv"), httpmock.NewStringResponder(404, ""))

	ok, err := s.Exists(t.Context(), "files_tracker.csv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestS3ExistsPresentKey(t *testing.T) {
	s, mt := newMockS3Store(t)
	mt.RegisterResponder(http.MethodHead, objectURL("files_tracker.csv"), httpmock.NewStringResponder(200, ""))

	ok, err := s.Exists(t.Context(), "files_tracker.csv")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestS3GetMissingKeyIsNotFound(t *testing.T) {
	s, mt := newMockS3Store(t)
	mt.RegisterResponder(http.MethodGet, objectURL("files_tracker.csv"), xmlResponder(404, noSuchKeyXML))

	_, err := s.Get(t.Context(), "files_tracker.csv")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestS3GetOtherFailureIsNotNotFound(t *testing.T) {
	s, mt := newMockS3Store(t)
	mt.RegisterResponder(http.MethodGet, objectURL("files_tracker.csv"), xmlResponder(403,
		`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))

	_, err := s.Get(t.Context(), "files_tracker.csv")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestS3GetReadsBody(t *testing.T) {
	s, mt := newMockS3Store(t)
	mt.RegisterResponder(http.MethodGet, objectURL("files_tracker.csv"),
		httpmock.NewStringResponder(200, "file,link,date_added,loaded\n"))

	data, err := s.Get(t.Context(), "files_tracker.csv")
	require.NoError(t, err)
	assert.Equal(t, "file,link,date_added,loaded\n", string(data))
}

func TestS3TrackerLoadStartsEmptyWhenMissing(t *testing.T) {
	s, mt := newMockS3Store(t)
	mt.RegisterResponder(http.MethodGet, objectURL("files_tracker.csv"), xmlResponder(404, noSuchKeyXML))

	tr := NewTracker(s, "files_tracker.csv", utils.NewLoggerTo(io.Discard))
	require.NoError(t, tr.Load(t.Context()))
	assert.Empty(t, tr.Entries())
}

func listPage(keys []string, next string) string {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
<Name>sipsa</Name><Prefix>reports</Prefix><MaxKeys>2</MaxKeys>`
	if next != "" {
		body += `<IsTruncated>true</IsTruncated><NextContinuationToken>` + next + `</NextContinuationToken>`
	} else {
		body += `<IsTruncated>false</IsTruncated>`
	}
	for _, k := range keys {
		body += `<Contents><Key>` + k + `</Key><Size>10</Size></Contents>`
	}
	return body + `</ListBucketResult>`
}

func TestS3ListFollowsContinuationTokens(t *testing.T) {
	s, mt := newMockS3Store(t)
	var tokens []string
	list := func(req *http.Request) (*http.Response, error) {
		q, err := url.ParseQuery(req.URL.RawQuery)
		require.NoError(t, err)
		assert.Equal(t, "reports", q.Get("prefix"))
		token := q.Get("continuation-token")
		tokens = append(tokens, token)

		var body string
		if token == "" {
			body = listPage([]string{"reports/2017/week_1_c.xlsx", "reports/2016/week_2_b.xls"}, "page-2")
		} else {
			body = listPage([]string{"reports/2016/week_1_a.xls"}, "")
		}
		return xmlResponder(200, body)(req)
	}
	mt.RegisterResponder(http.MethodGet, testEndpoint+"/"+testBucket, list)
	mt.RegisterResponder(http.MethodGet, testEndpoint+"/"+testBucket+"/", list)

	keys, err := s.List(t.Context(), "reports")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"reports/2016/week_1_a.xls",
		"reports/2016/week_2_b.xls",
		"reports/2017/week_1_c.xlsx",
	}, keys)
	assert.Equal(t, []string{"", "page-2"}, tokens)
}

func TestIsNotFoundIgnoresOtherErrors(t *testing.T) {
	assert.False(t, isNotFound(assert.AnError))
}
