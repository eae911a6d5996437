package interfaces

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for HTTP requests with potential proxy/retry logic.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// Get performs a GET request to the specified URL with parameters.
	// Returns the response body as bytes or an error.
	Get(url string, params map[string]string) ([]byte, error)

	// -----------------------------------------------------------------------------

	// Post performs a POST request with a JSON body, retrying on transport
	// errors. Only for idempotent endpoints.
	Post(url string, body []byte) ([]byte, error)

	// -----------------------------------------------------------------------------

	// PostOnce performs exactly one POST attempt. For non-idempotent requests
	// where a lost response must never cause a re-issue.
	PostOnce(url string, body []byte) ([]byte, error)
}
