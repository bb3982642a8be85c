package rip

//go:generate $MOCKGEN -source=tag_processor.go -destination=mocks/tag_processor_mock.go

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	mp4tag "github.com/Sorrow446/go-mp4tag"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/oshokin/id3v2/v2"

	"github.com/avoronov/ripstream/internal/logger"
	"github.com/avoronov/ripstream/internal/metadata"
	"github.com/avoronov/ripstream/internal/utils"
)

// flacMaxMetadataBlockSize is the largest payload a FLAC metadata block can
// carry (24-bit length field). Covers above it cannot be embedded.
const flacMaxMetadataBlockSize = 16777215

// TagProcessor defines the interface for writing metadata tags to audio files.
type TagProcessor interface {
	WriteTags(ctx context.Context, req *WriteTagsRequest) error
}

// WriteTagsRequest contains parameters for writing metadata to audio files.
type WriteTagsRequest struct {
	// TrackPath is the file path of the audio track.
	TrackPath string
	// CoverPath is the file path of the cover art image, empty when absent.
	CoverPath string
	// Container selects the tag format (FLAC, MP4, MP3).
	Container metadata.Container
	// Source is the provider name, used for provenance tag naming.
	Source string
	// TrackTags contains metadata key-value pairs to write.
	TrackTags map[string]string
	// PlaylistID is set for playlist tracks to record their origin.
	PlaylistID string
}

// TagProcessorImpl provides the default implementation of TagProcessor.
type TagProcessorImpl struct{}

// imageMetadata contains image data and its MIME type.
type imageMetadata struct {
	// data contains the raw image bytes.
	data []byte
	// mimeType specifies the image format (e.g., "image/jpeg").
	mimeType string
}

// extractFLACCommentResult contains the result of extracting FLAC comment metadata.
type extractFLACCommentResult struct {
	// Comment is the FLAC Vorbis comment metadata block.
	Comment *flacvorbis.MetaDataBlockVorbisComment
	// Index is the index of the comment block in the FLAC file metadata (-1 if not found).
	Index int
}

// Static error definitions for better error handling.
var (
	// ErrEmptyTrackPath indicates that the track file path is empty.
	ErrEmptyTrackPath = errors.New("track path cannot be empty")
)

// NewTagProcessor creates a new TagProcessor instance.
func NewTagProcessor() TagProcessor {
	return new(TagProcessorImpl)
}

// WriteTags writes metadata to the audio file based on its container.
func (tp *TagProcessorImpl) WriteTags(ctx context.Context, req *WriteTagsRequest) error {
	if req.TrackPath == "" {
		return ErrEmptyTrackPath
	}

	image, err := tp.loadCover(req)
	if err != nil {
		return err
	}

	switch req.Container {
	case metadata.ContainerFLAC:
		return tp.writeFLACTags(req, image)
	case metadata.ContainerMP4:
		return tp.writeMP4Tags(req, image)
	case metadata.ContainerMP3:
		return tp.writeMP3Tags(ctx, req, image)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTagFormat, req.Container)
	}
}

func (tp *TagProcessorImpl) loadCover(req *WriteTagsRequest) (*imageMetadata, error) {
	if req.CoverPath == "" {
		return nil, nil
	}

	imageData, err := os.ReadFile(filepath.Clean(req.CoverPath))
	if err != nil {
		return nil, err
	}

	// FLAC pictures live in a metadata block with a 24-bit size field.
	// Oversized covers make the file unwritable, so the track fails
	// deterministically instead of producing a corrupt file.
	if req.Container == metadata.ContainerFLAC && len(imageData) > flacMaxMetadataBlockSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCoverTooLarge, len(imageData))
	}

	imageMIMEType := mime.TypeByExtension(filepath.Ext(req.CoverPath))
	if imageMIMEType == "" {
		imageMIMEType = utils.ImageJPEGMimeType
	}

	return &imageMetadata{
		data:     imageData,
		mimeType: imageMIMEType,
	}, nil
}

func (tp *TagProcessorImpl) writeFLACTags(req *WriteTagsRequest, image *imageMetadata) error {
	f, err := flac.ParseFile(filepath.Clean(req.TrackPath))
	if err != nil {
		return err
	}

	commentResult, err := tp.extractFLACComment(f)
	if err != nil {
		return err
	}

	tag := commentResult.Comment
	if tag == nil {
		tag = flacvorbis.New()
	}

	if err = tp.addFLACTags(tag, req); err != nil {
		return err
	}

	tagMeta := tag.Marshal()
	if commentResult.Index >= 0 {
		f.Meta[commentResult.Index] = &tagMeta
	} else {
		f.Meta = append(f.Meta, &tagMeta)
	}

	if err = tp.embedFLACCover(f, image); err != nil {
		return err
	}

	return f.Save(req.TrackPath)
}

func (tp *TagProcessorImpl) extractFLACComment(f *flac.File) (*extractFLACCommentResult, error) {
	for idx, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}

		comment, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err == nil {
			return &extractFLACCommentResult{
				Comment: comment,
				Index:   idx,
			}, nil
		}
	}

	return &extractFLACCommentResult{
		Comment: nil,
		Index:   -1,
	}, nil
}

func (tp *TagProcessorImpl) addFLACTags(tag *flacvorbis.MetaDataBlockVorbisComment, req *WriteTagsRequest) error {
	sourcePrefix := strings.ToUpper(req.Source)

	flacTags := map[string]string{
		"ALBUM":                        req.TrackTags[tagAlbumTitle],
		"ALBUMARTIST":                  req.TrackTags[tagAlbumArtist],
		"ARTIST":                       req.TrackTags[tagTrackArtist],
		"ARTISTS":                      req.TrackTags[tagTrackArtists],
		"BARCODE":                      req.TrackTags[tagBarcode],
		"BPM":                          req.TrackTags[tagTrackBPM],
		"COMPOSER":                     req.TrackTags[tagTrackComposer],
		"COPYRIGHT":                    req.TrackTags[tagCopyright],
		"DATE":                         req.TrackTags[tagReleaseDate],
		"DISCNUMBER":                   req.TrackTags[tagDiscNumber],
		"DISCTOTAL":                    req.TrackTags[tagDiscTotal],
		"GENRE":                        req.TrackTags[tagTrackGenre],
		"ISRC":                         req.TrackTags[tagTrackISRC],
		"LABEL":                        req.TrackTags[tagRecordLabel],
		"LYRICS":                       req.TrackTags[tagTrackLyrics],
		"MEDIA":                        req.TrackTags[tagMediaType],
		"TITLE":                        req.TrackTags[tagTrackTitle],
		"TRACKNUMBER":                  req.TrackTags[tagTrackNumber],
		"TRACKTOTAL":                   req.TrackTags[tagTrackTotal],
		"WORK":                         req.TrackTags[tagTrackWork],
		"YEAR":                         req.TrackTags[tagReleaseYear],
		"DESCRIPTORS":                  req.TrackTags[tagRYMDescriptors],
		sourcePrefix + "_TRACK_ID":     req.TrackTags[tagTrackID],
		sourcePrefix + "_ALBUM_ID":     req.TrackTags[tagAlbumID],
		sourcePrefix + "_ARTIST_ID":    req.TrackTags[tagSourceArtistID],
	}

	if req.PlaylistID != "" {
		flacTags[sourcePrefix+"_PLAYLIST_ID"] = req.PlaylistID
	}

	for k, v := range flacTags {
		if v == "" {
			continue
		}

		if err := tag.Add(k, v); err != nil {
			return err
		}
	}

	return nil
}

func (tp *TagProcessorImpl) embedFLACCover(f *flac.File, image *imageMetadata) error {
	if image == nil {
		return nil
	}

	picture, err := flacpicture.NewFromImageData(
		flacpicture.PictureTypeFrontCover, "", image.data, image.mimeType)
	if err != nil {
		return fmt.Errorf("failed to build FLAC picture block: %w", err)
	}

	pictureMeta := picture.Marshal()
	f.Meta = append(f.Meta, &pictureMeta)

	return nil
}

func (tp *TagProcessorImpl) writeMP3Tags(
	ctx context.Context,
	req *WriteTagsRequest,
	image *imageMetadata,
) error {
	//nolint:exhaustruct // ParseFrames intentionally omitted when Parse=false (parsing disabled).
	tag, err := id3v2.Open(req.TrackPath, id3v2.Options{Parse: false})
	if err != nil {
		return err
	}

	defer tag.Close()

	tp.addMP3Tags(ctx, tag, req)

	if image != nil {
		//nolint:exhaustruct // Description field intentionally empty for cover images.
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    image.mimeType,
			PictureType: id3v2.PTFrontCover,
			Picture:     image.data,
		})
	}

	return tag.Save()
}

func (tp *TagProcessorImpl) addMP3Tags(ctx context.Context, tag *id3v2.Tag, req *WriteTagsRequest) {
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	tag.SetAlbum(req.TrackTags[tagAlbumTitle])
	tag.SetArtist(req.TrackTags[tagTrackArtist])
	tag.SetGenre(req.TrackTags[tagTrackGenre])
	tag.SetTitle(req.TrackTags[tagTrackTitle])
	tag.SetYear(req.TrackTags[tagReleaseYear])

	var (
		trackNumber = req.TrackTags[tagTrackNumber]
		trackCount  = req.TrackTags[tagTrackTotal]
	)

	if trackNumber != "" && trackCount != "" {
		tag.AddTextFrame(
			tag.CommonID("Track number/Position in set"),
			tag.DefaultEncoding(),
			trackNumber+"/"+trackCount,
		)
	}

	tag.AddTextFrame(tag.CommonID("Band/Orchestra/Accompaniment"), tag.DefaultEncoding(), req.TrackTags[tagAlbumArtist])
	tag.AddTextFrame(tag.CommonID("Publisher"), tag.DefaultEncoding(), req.TrackTags[tagRecordLabel])
	tag.AddTextFrame(tag.CommonID("ISRC"), tag.DefaultEncoding(), req.TrackTags[tagTrackISRC])

	if composer := req.TrackTags[tagTrackComposer]; composer != "" {
		tag.AddTextFrame(tag.CommonID("Composer"), tag.DefaultEncoding(), composer)
	}

	tp.addMP3ProvenanceTags(tag, req)

	if lyrics := strings.TrimSpace(req.TrackTags[tagTrackLyrics]); lyrics != "" {
		//nolint:exhaustruct // ContentDescriptor not available in source data.
		tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
			Encoding: id3v2.EncodingUTF8,
			Lyrics:   lyrics,
			// Field is required, so we just use lingua franca.
			Language: id3v2.EnglishISO6392Code,
		})
	}

	logger.Debugf(ctx, "Wrote ID3v2 tags for %q", req.TrackTags[tagTrackTitle])
}

// addMP3ProvenanceTags records provider-native identifiers in TXXX frames,
// e.g. TXXX:QOBUZ_TRACK_ID, so a library can be traced back to its source.
func (tp *TagProcessorImpl) addMP3ProvenanceTags(tag *id3v2.Tag, req *WriteTagsRequest) {
	sourcePrefix := strings.ToUpper(req.Source)

	provenance := map[string]string{
		sourcePrefix + "_TRACK_ID":  req.TrackTags[tagTrackID],
		sourcePrefix + "_ALBUM_ID":  req.TrackTags[tagAlbumID],
		sourcePrefix + "_ARTIST_ID": req.TrackTags[tagSourceArtistID],
	}

	if req.PlaylistID != "" {
		provenance[sourcePrefix+"_PLAYLIST_ID"] = req.PlaylistID
	}

	for description, value := range provenance {
		if value == "" {
			continue
		}

		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: description,
			Value:       value,
		})
	}
}

func (tp *TagProcessorImpl) writeMP4Tags(req *WriteTagsRequest, image *imageMetadata) error {
	mp4, err := mp4tag.Open(filepath.Clean(req.TrackPath))
	if err != nil {
		return err
	}

	defer mp4.Close()

	sourcePrefix := strings.ToUpper(req.Source)

	custom := map[string]string{
		"ISRC":                      req.TrackTags[tagTrackISRC],
		"BARCODE":                   req.TrackTags[tagBarcode],
		"LABEL":                     req.TrackTags[tagRecordLabel],
		sourcePrefix + "_TRACK_ID":  req.TrackTags[tagTrackID],
		sourcePrefix + "_ALBUM_ID":  req.TrackTags[tagAlbumID],
		sourcePrefix + "_ARTIST_ID": req.TrackTags[tagSourceArtistID],
	}

	if req.PlaylistID != "" {
		custom[sourcePrefix+"_PLAYLIST_ID"] = req.PlaylistID
	}

	for key, value := range custom {
		if value == "" {
			delete(custom, key)
		}
	}

	//nolint:exhaustruct // Only fields with source data are set.
	tags := &mp4tag.MP4Tags{
		Title:       req.TrackTags[tagTrackTitle],
		Album:       req.TrackTags[tagAlbumTitle],
		Artist:      req.TrackTags[tagTrackArtist],
		AlbumArtist: req.TrackTags[tagAlbumArtist],
		Composer:    req.TrackTags[tagTrackComposer],
		Copyright:   req.TrackTags[tagCopyright],
		CustomGenre: req.TrackTags[tagTrackGenre],
		Custom:      custom,
	}

	if year, convErr := strconv.ParseInt(req.TrackTags[tagReleaseYear], 10, 32); convErr == nil {
		tags.Year = int32(year)
	}

	tags.TrackNumber = parseInt16Tag(req.TrackTags[tagTrackNumber])
	tags.TrackTotal = parseInt16Tag(req.TrackTags[tagTrackTotal])
	tags.DiscNumber = parseInt16Tag(req.TrackTags[tagDiscNumber])
	tags.DiscTotal = parseInt16Tag(req.TrackTags[tagDiscTotal])

	if image != nil {
		//nolint:exhaustruct // Format is detected from the data.
		tags.Pictures = []*mp4tag.MP4Picture{{Data: image.data}}
	}

	return mp4.Write(tags, nil)
}

func parseInt16Tag(value string) int16 {
	parsed, err := strconv.ParseInt(value, 10, 16)
	if err != nil {
		return 0
	}

	return int16(parsed)
}
