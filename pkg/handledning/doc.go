// Package handledning is a client for the DSV lab supervision system:
// listing a teacher's sessions, reading and editing the student queue, and
// flipping sessions active. The desktop and mobile variants serve the same
// data under different base paths.
package handledning
