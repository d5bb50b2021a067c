// Package instrument decodes UVP instrument metadata into [models.SampleDraft] records.
//
// Two source shapes are supported:
//
//   - UVP6 samples carry a "<name>_Particule.zip" archive whose single *.hdr member is an INI document
//     ([DecodeMetadata], [DraftFromINI]) and a "<name>_Images.zip" archive holding compute_vignette.txt
//     ([ReadVignetteSettings]).
//   - UVP5 projects describe samples with semicolon separated header lines in meta/*_header_*.txt
//     ([DecodeHeaderLine], [ReadHeaderFiles]).
//
// Coordinates are normalized by [ConvertCoordinate] and the sample type letter is resolved by
// [ComputeSampleType]. Numeric header fields that do not parse are kept as NaN.
package instrument
