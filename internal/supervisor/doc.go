// Package supervisor runs a single external command to completion while
// relaying its merged output, and converts the result into an exit code.
//
// The child's stdout and stderr share one OS pipe, so lines reach the
// supervisor in exactly the order the child wrote them. Cancellation of the
// run context (SIGINT or SIGTERM in the devrun binary) stops relaying at once
// and forwards a stop request to the direct child. On Linux and macOS that
// request is SIGTERM; on Windows the child is killed because console
// interrupts cannot be delivered to another process. Grandchildren are not
// tracked: when devrun runs in the foreground of a terminal, job control
// already delivers Ctrl-C to every member of the process group.
package supervisor
