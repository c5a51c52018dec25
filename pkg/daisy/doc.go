// Package daisy is a client for Daisy, the DSV study administration
// system: room schedules and bookings, student search and the employee
// directory. Daisy has no machine API; the client decodes the same
// server-rendered pages a browser gets.
package daisy
