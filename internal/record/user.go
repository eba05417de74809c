package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	UsernameMaxLength = 255
	EmailMaxLength    = 32

	idSize       = 4
	usernameSize = UsernameMaxLength + 1 // NUL terminated
	emailSize    = EmailMaxLength + 1

	idOffset       = 0
	usernameOffset = idOffset + idSize
	emailOffset    = usernameOffset + usernameSize

	// UserSize is the serialized size of a User, 293 bytes
	UserSize = idSize + usernameSize + emailSize
)

type User struct {
	ID       uint32
	Username string
	Email    string
}

func (u User) String() string {
	return fmt.Sprintf("(%d, %s, %s)", u.ID, u.Username, u.Email)
}

// Validate checks the string columns fit into their fixed size fields.
func (u User) Validate() error {
	if len(u.Username) > UsernameMaxLength {
		return fmt.Errorf("%w: username is %d bytes, max %d", ErrStringTooLong, len(u.Username), UsernameMaxLength)
	}
	if len(u.Email) > EmailMaxLength {
		return fmt.Errorf("%w: email is %d bytes, max %d", ErrStringTooLong, len(u.Email), EmailMaxLength)
	}
	return nil
}

type UserCodec struct{}

func (UserCodec) Size() uint32 {
	return UserSize
}

func (UserCodec) Marshal(u User, buf []byte) error {
	if err := checkBuffer(buf, UserSize); err != nil {
		return err
	}
	if err := u.Validate(); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(buf[idOffset:], u.ID)
	putString(buf[usernameOffset:usernameOffset+usernameSize], u.Username)
	putString(buf[emailOffset:emailOffset+emailSize], u.Email)

	return nil
}

func (UserCodec) Unmarshal(buf []byte) (User, error) {
	if err := checkBuffer(buf, UserSize); err != nil {
		return User{}, err
	}

	return User{
		ID:       binary.LittleEndian.Uint32(buf[idOffset:]),
		Username: readString(buf[usernameOffset : usernameOffset+usernameSize]),
		Email:    readString(buf[emailOffset : emailOffset+emailSize]),
	}, nil
}

func putString(field []byte, s string) {
	clear(field[copy(field, s):])
}

// readString returns the field up to the first NUL byte.
func readString(field []byte) string {
	if idx := bytes.IndexByte(field, 0); idx >= 0 {
		field = field[:idx]
	}
	return string(field)
}
