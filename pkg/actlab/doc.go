// Package actlab manages the ACT Lab digital signage: uploading slide
// images, attaching them to shows and cleaning out old ones. The admin
// backend is a PHP form application; mutations go through action.php, which
// reports failures in an "error=" Set-Cookie header and success as a
// redirect with an empty Location.
package actlab
