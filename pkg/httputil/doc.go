// Package httputil holds the retry policy shared by pixl's HTTP clients.
//
// An operation marks a failure as transient by wrapping it in
// [RetryableError]; [Retry] then runs it again after a delay that doubles
// on every attempt, up to [MaxDelay]. Any other error ends the loop at
// once, so a 404 is reported immediately while a dropped connection or a
// 503 gets another chance:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := http.Get(url)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
package httputil
