package customHttpClient

import (
	"net/http"

	"github.com/tatce/ObecRAG/internal/config"
)

// one pooled transport shared by the OpenAI chat and embedding clients, so
// repeated provider calls reuse connections instead of re-dialing
var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

var pooledClient = &http.Client{Transport: customTransport}

func Pooled() *http.Client {
	return pooledClient
}
