// Package mail reads and sends university mailbox messages through the
// ebox.su.se Exchange gateway. Unlike the web service clients this does
// not ride on the SSO session: the gateway authenticates IMAP and SMTP
// connections directly against the Windows domain account.
package mail
