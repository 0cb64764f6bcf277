// Package services talks to Microsoft Graph's To Do endpoints.
//
// # Graph Client
//
// [GraphClient] performs GET requests with a bearer token (an [oauth2.Transport] over a
// static token source) on top of a resty client. Responses are classified by status:
//   - 2xx : returned as an [APIResponse]
//   - 401 : [AuthenticationError], never retried
//   - 429 : retried after the Retry-After delay, then [RateLimitError]
//   - 5xx and timeouts : retried with 1s, 2s, 4s backoff, then [ServerError]
//   - anything else : [UnexpectedStatusError]
//
// Continuation links returned in "@odata.nextLink" are absolute and are passed to Get unchanged.
//
// # API Mappings
//
// Graph payloads are decoded once into [GraphList], [GraphTask] and [GraphChecklistItem],
// then converted into models types. HTML task bodies become markdown.
package services
