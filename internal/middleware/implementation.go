package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/tatce/ObecRAG/internal/adapter/utils"
	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/handlers"
)

func injectTrace(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Injecting trace middleware")
	req := re.req
	if req == nil {
		re.badRequest.httpCode = http.StatusBadRequest
		re.badRequest.errorMessage = "request is empty"
		re.badRequest.isBadRequest = true
		return re
	}
	trace := req.Header.Get("X-Trace-Id")
	if trace == "" {
		trace = utils.GetNewUUID()
	}
	re.logger = re.logger.With("traceId", trace)
	ctx := context.WithValue(req.Context(), config.TRACE_ID_KEY, trace)
	req.Header.Set(`X-Trace-Id`, trace)
	re.req = req.WithContext(ctx)

	re.logger.Debug("trace middleware injected")
	return re
}

// corsHeaders lets the municipality web client call the API from the
// browser. Preflight requests are answered here and never reach a handler.
func corsHeaders(re requestResponseStruct) requestResponseStruct {
	re.writer.Header().Set("Access-Control-Allow-Origin", "*")
	re.writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	re.writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Trace-Id")

	if re.req.Method == http.MethodOptions {
		re.logger.Debug("Answering CORS preflight")
		re.writer.WriteHeader(http.StatusOK)
		re.preflight = true
	}
	return re
}

func rateLimiter(re requestResponseStruct) requestResponseStruct {
	re.logger.Debug("Rate limiter middleware")
	ip, _, err := net.SplitHostPort(re.req.RemoteAddr)
	if err != nil {
		ip = re.req.RemoteAddr
	}

	if !limiterInstance.GetLimiter(ip).Allow() {
		re.logger.Error("Too many requests", "Rate Limiter exceeded", ip)
		re.badRequest = failureStruct{
			isBadRequest: true,
			httpCode:     http.StatusTooManyRequests,
			errorMessage: "Rate limit exceeded",
		}
		return re
	}
	re.logger.Debug("Rate limiter middleware authorized")
	return re
}

func handleBadRequest(re requestResponseStruct) bool {
	if re.badRequest.isBadRequest {
		re.logger.Warn("Bad request", "httpCode", re.badRequest.httpCode, "errorMessage", re.badRequest.errorMessage, "IP", re.req.RemoteAddr)
		handlers.WriteErrorResponse(re.writer, re.badRequest.httpCode, re.badRequest.id, re.badRequest.errorMessage)
		return false
	}
	return true
}
