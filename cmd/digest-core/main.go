package main

// @title           Digest Core API
// @version         1.0
// @description     Asynchronous PDF digestion. Upload a PDF, poll its status, read the extracted text and summary.

// @contact.name   Digest Core OSS
// @contact.url    https://github.com/custodia-labs/digest-core/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"log"
	"os"
)

var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("digest-core: ")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
