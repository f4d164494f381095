/*
Package cif provides a reader and a writer for the Crystallographic Information
File (CIF) format, covering both CIF 1.1 and CIF 2.0:
http://www.iucr.org/resources/cif/spec/version1.1/cifsyntax
https://www.iucr.org/resources/cif/cif2

The package decodes arbitrary byte input (detecting BOM/magic-declared
encodings, falling back to a caller-supplied default), scans it into a token
stream with CIF 2's line-folding and line-prefixing text-block protocols
applied, parses it with a predictive recursive-descent parser into an
in-memory CIF value, and writes a CIF back out choosing, per value, the
narrowest delimiter that round-trips it.

Line length is enforced at 2048 Unicode code units, per the CIF 2.0
specification; overlength input lines are a recoverable parse error, and the
writer never emits one.
*/
package cif
