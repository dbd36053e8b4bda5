// Package http provides HTTP handlers and middleware for the calendar API.
//
// The router exposes the following endpoints:
//   - POST /api/auth/register, POST /api/auth/login: account creation and
//     token issuance. Login responds with {"token","token_type","expires_in",
//     "user"}.
//   - GET /api/users?search=, GET /api/users/{id}: the user directory
//     backing the attendee picker.
//   - GET/POST /api/events, GET/PUT/DELETE /api/events/{id}: calendar events
//     with their attendee rosters. GET accepts an optional from/to range and
//     returns only events overlapping it. POST /api/events/{id}/respond records the
//     caller's RSVP; POST /api/events/{id}/notify fans a manual notification
//     out to the roster; DELETE /api/events/delete wipes all events (admin).
//   - GET /api/notifications?page=&pageSize=&includeRead=: the caller's feed,
//     newest first. DELETE /api/notifications/{id} dismisses one entry
//     idempotently.
//   - GET/POST /api/rooms: the meeting room catalog (creation is admin only).
//   - GET /api/presence?from=&to=, PUT /api/presence: team presence by day.
//   - GET /ws?token=: websocket upgrade for the realtime broadcast stream.
//   - GET /healthz: liveness probe.
//
// All /api routes except the auth endpoints require a bearer token. Errors
// share one envelope: {"error":{"code","message","fields"}}. Request and
// response DTOs live alongside their handlers so tests and documentation
// share the same ground truth.
package http
