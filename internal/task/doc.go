// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of operations like
// fanning transcripts out to the inference service and ingesting result
// callbacks, ensuring they don't block HTTP request handling.
package task
