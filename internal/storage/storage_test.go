package storage

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

type deleteRequest struct {
	XMLName xml.Name `xml:"Delete"`
	Objects []struct {
		Key string `xml:"Key"`
	} `xml:"Object"`
}

// The batch delete API accepts at most 1000 keys per request, so DeletePrefix
// has to issue one delete per list page instead of accumulating keys.
func TestDeletePrefixDeletesPerPage(t *testing.T) {
	var deletes [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Query().Has("delete"):
			body, _ := io.ReadAll(r.Body)
			var req deleteRequest
			if err := xml.Unmarshal(body, &req); err != nil {
				t.Errorf("bad delete payload: %v", err)
			}
			keys := make([]string, 0, len(req.Objects))
			for _, o := range req.Objects {
				keys = append(keys, o.Key)
			}
			deletes = append(deletes, keys)
			w.Header().Set("Content-Type", "application/xml")
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></DeleteResult>`)
		case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
			w.Header().Set("Content-Type", "application/xml")
			if r.URL.Query().Get("continuation-token") == "" {
				io.WriteString(w, listPage(`<Contents><Key>users/u1/a.jpg</Key></Contents><Contents><Key>users/u1/b.jpg</Key></Contents>`, "page-2"))
				return
			}
			io.WriteString(w, listPage(`<Contents><Key>users/u1/c.jpg</Key></Contents>`, ""))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(srv.URL)
		o.UsePathStyle = true
	})
	store := NewStore(client, "visuals", zerolog.Nop())

	if err := store.DeletePrefix(context.Background(), "users/u1"); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if len(deletes) != 2 {
		t.Fatalf("expected one delete request per list page, got %d", len(deletes))
	}
	if got := strings.Join(deletes[0], ","); got != "users/u1/a.jpg,users/u1/b.jpg" {
		t.Fatalf("unexpected first page keys: %s", got)
	}
	if got := strings.Join(deletes[1], ","); got != "users/u1/c.jpg" {
		t.Fatalf("unexpected second page keys: %s", got)
	}
}

func listPage(contents, next string) string {
	truncated := "false"
	token := ""
	if next != "" {
		truncated = "true"
		token = "<NextContinuationToken>" + next + "</NextContinuationToken>"
	}
	return `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>visuals</Name><IsTruncated>` + truncated + `</IsTruncated>` + token + contents + `</ListBucketResult>`
}
