package handlers

import (
	"html/template"

	"github.com/gin-gonic/gin"
)

const (
	loginSuccessTemplate = "login_success.html"
	loginFailedTemplate  = "login_failed.html"
)

// TokenStorageKey is the localStorage key the web client reads the session from.
const TokenStorageKey = "freeshare_token"

var callbackTemplates = template.Must(template.New(loginSuccessTemplate).Parse(`<!doctype html>
<html>
  <head><meta charset="utf-8"><title>FreeShare</title></head>
  <body>
    <h1>Login Successful...</h1>
    <script>
      localStorage.setItem({{.StorageKey}}, {{.Token}});
      window.location.href = {{.RedirectURL}};
    </script>
  </body>
</html>
`))

func init() {
	template.Must(callbackTemplates.New(loginFailedTemplate).Parse(`<!doctype html>
<html>
  <head><meta charset="utf-8"><title>FreeShare</title></head>
  <body>
    <h3>Login Failed</h3>
    <p>{{.Reason}}</p>
    <a href="{{.HomeURL}}">Go Home</a>
  </body>
</html>
`))
}

// LoadTemplates installs the OAuth callback pages on r.
func LoadTemplates(r *gin.Engine) {
	r.SetHTMLTemplate(callbackTemplates)
}
