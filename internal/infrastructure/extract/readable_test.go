package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Story</title><style>p { color: red }</style></head>
<body>
<nav><p>Home News Sport Weather and other navigation links here</p></nav>
<article>
  <p>Short.</p>
  <p>Researchers at a major lab announced a significant breakthrough in
     efficient model training on Monday morning.</p>
  <p>The result reduces training cost by an order of magnitude according
     to the published paper.</p>
</article>
<footer><p>Copyright notices and unsubscribe links live down here in the footer</p></footer>
<script>console.log("analytics beacon with a long payload string inside")</script>
</body>
</html>`

func TestExtractReturnsArticleParagraphs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(articlePage))
	}))
	t.Cleanup(srv.Close)

	text, err := New(nil).Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if !strings.Contains(text, "significant breakthrough") {
		t.Errorf("missing first paragraph: %q", text)
	}
	if !strings.Contains(text, "order of magnitude") {
		t.Errorf("missing second paragraph: %q", text)
	}
	if strings.Contains(text, "Short.") {
		t.Errorf("kept a paragraph below the length floor: %q", text)
	}
	if strings.Contains(text, "navigation") || strings.Contains(text, "footer") {
		t.Errorf("kept chrome text: %q", text)
	}
	if strings.Contains(text, "analytics") {
		t.Errorf("kept script content: %q", text)
	}
	if strings.Contains(text, "\n") {
		t.Errorf("whitespace not collapsed: %q", text)
	}
}

func TestExtractFallsBackToBody(t *testing.T) {
	t.Parallel()

	page := `<html><body>
	<p>A page without semantic containers still yields its paragraph text.</p>
	</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	text, err := New(nil).Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if !strings.Contains(text, "semantic containers") {
		t.Errorf("body fallback missing text: %q", text)
	}
}

func TestExtractRejectsNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	if _, err := New(nil).Extract(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for 404 page")
	}
}

func TestExtractRejectsEmptyPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body><div>no paragraphs here</div></body></html>"))
	}))
	t.Cleanup(srv.Close)

	if _, err := New(nil).Extract(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for page without readable text")
	}
}
