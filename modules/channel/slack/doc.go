// Package slack implements the Slack channel for slackapprove.
//
// Inbound, it turns slash commands, modal submissions and button presses
// into interaction.Interaction values and hands them to the router, in one
// of two delivery modes:
//
//   - http: signed requests arrive through the gateway webhook dispatcher
//     at POST /webhooks/slack and are verified with the signing secret
//   - socket: envelopes arrive over a Socket Mode websocket opened with the
//     app-level token and are acknowledged before routing
//
// Outbound, Client implements workflow.Platform over the Slack Web API with
// a client-side rate limit, one span per call and a call counter.
//
// The module registers itself as "channel.slack" via init().
package slack
