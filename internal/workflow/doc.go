// Package workflow implements the approval state machine and the three
// stateless components that drive it:
//
//   - Intake opens the request modal in response to the slash command.
//   - Encoder turns a modal submission into a pending Request, encodes the
//     resolution state into a Token carried by both decision buttons, and
//     notifies the approver and the requester.
//   - Resolver decodes the token on a button activation, computes the
//     terminal status, rewrites the approver's message in place, and notifies
//     the requester.
//
// No component keeps state between callbacks. Everything needed to resolve a
// decision travels in the token and in the callback itself; the optional
// Ledger only guards against a second, conflicting activation.
package workflow
