package httpx

import "net/http"

// Status codes the service answers with.
const (
	StatusOK                 = http.StatusOK
	StatusBadRequest         = http.StatusBadRequest // query validation
	StatusNotFound           = http.StatusNotFound
	StatusMethodNotAllowed   = http.StatusMethodNotAllowed
	StatusInternalError      = http.StatusInternalServerError
	StatusBadGateway         = http.StatusBadGateway         // vendor API failed or sent an unreadable body
	StatusServiceUnavailable = http.StatusServiceUnavailable // cache backend down
)
