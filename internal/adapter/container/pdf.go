package container

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"containerCracker/internal/core/domain"
)

var pdfPasswordPad = [32]byte{
	0x28, 0xbf, 0x4e, 0x5e, 0x4e, 0x75, 0x8a, 0x41,
	0x64, 0x00, 0x4e, 0x56, 0xff, 0xfa, 0x01, 0x08,
	0x2e, 0x2e, 0x00, 0xb6, 0xd0, 0x68, 0x3e, 0x80,
	0x2f, 0x0c, 0xa9, 0xfe, 0x64, 0x53, 0x69, 0x7a,
}

// pdfTarget holds the Standard security handler parameters of one document.
type pdfTarget struct {
	revision        int
	keyLen          int
	o               []byte
	u               []byte
	p               int32
	id0             []byte
	encryptMetadata bool
}

// PDFPredicate checks passwords against the Standard security handler,
// revisions 2 through 6. Either the user or the owner password matches.
type PDFPredicate struct {
	logger  *zap.Logger
	group   singleflight.Group
	targets syncMap[string, *pdfTarget]
}

func NewPDFPredicate(logger *zap.Logger) *PDFPredicate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFPredicate{logger: logger}
}

func (p *PDFPredicate) Kind() domain.ContainerKind {
	return domain.KindPDF
}

func (p *PDFPredicate) Inspect(path string) error {
	t, err := p.target(path)
	if err != nil {
		return err
	}
	p.logger.Debug("pdf target inspected",
		zap.String("path", path),
		zap.Int("revision", t.revision),
		zap.Int("key_bits", t.keyLen*8))
	return nil
}

func (p *PDFPredicate) Verify(path, password string) (bool, error) {
	t, err := p.target(path)
	if err != nil {
		return false, err
	}
	return t.check([]byte(password)), nil
}

func (p *PDFPredicate) target(path string) (*pdfTarget, error) {
	if t, ok := p.targets.Load(path); ok {
		return t, nil
	}

	v, err, _ := p.group.Do(path, func() (any, error) {
		data, err := readTarget(path)
		if err != nil {
			return nil, err
		}
		t, err := parsePDFTarget(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		p.targets.Store(path, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pdfTarget), nil
}

func parsePDFTarget(data []byte) (*pdfTarget, error) {
	if sniff(data) != domain.KindPDF {
		return nil, fmt.Errorf("%w: missing %%PDF- header", domain.ErrInvalidTarget)
	}

	trailers := trailerDicts(data)
	if len(trailers) == 0 {
		return nil, fmt.Errorf("%w: trailer not found", domain.ErrInvalidTarget)
	}

	var trailer pdfDict
	for _, t := range trailers {
		if _, ok := t["Encrypt"]; ok {
			trailer = t
			break
		}
	}
	if trailer == nil {
		return nil, domain.ErrNotEncrypted
	}

	enc, err := encryptDict(data, trailer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTarget, err)
	}
	if f := enc.nameValue("Filter"); f != "Standard" {
		return nil, fmt.Errorf("%w: unsupported security handler /%s", domain.ErrInvalidTarget, f)
	}

	t := &pdfTarget{encryptMetadata: enc.boolValue("EncryptMetadata", true)}

	var ok bool
	if t.revision, ok = enc.intValue("R"); !ok {
		return nil, fmt.Errorf("%w: /R missing", domain.ErrInvalidTarget)
	}
	if t.revision < 2 || t.revision > 6 {
		return nil, fmt.Errorf("%w: unsupported revision R=%d", domain.ErrInvalidTarget, t.revision)
	}

	keyBits, ok := enc.intValue("Length")
	if !ok || t.revision == 2 {
		keyBits = 40
	}
	if t.revision >= 5 {
		keyBits = 256
	}
	t.keyLen = keyBits / 8
	if t.revision <= 4 && (t.keyLen < 5 || t.keyLen > 16) {
		return nil, fmt.Errorf("%w: unsupported key length %d bits", domain.ErrInvalidTarget, keyBits)
	}

	pVal, ok := enc.intValue("P")
	if !ok {
		return nil, fmt.Errorf("%w: /P missing", domain.ErrInvalidTarget)
	}
	t.p = int32(pVal)

	if t.o, err = enc.stringValue("O"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTarget, err)
	}
	if t.u, err = enc.stringValue("U"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTarget, err)
	}

	need := 32
	if t.revision >= 5 {
		need = 48
	}
	if len(t.o) < need || len(t.u) < need {
		return nil, fmt.Errorf("%w: /O or /U shorter than %d bytes", domain.ErrInvalidTarget, need)
	}
	t.o, t.u = t.o[:need], t.u[:need]

	if t.revision <= 4 {
		for _, tr := range append([]pdfDict{trailer}, trailers...) {
			if id0, err := tr.firstArrayString("ID"); err == nil {
				t.id0 = id0
				break
			}
		}
		if t.id0 == nil {
			return nil, fmt.Errorf("%w: trailer /ID is required", domain.ErrInvalidTarget)
		}
	}
	return t, nil
}

func encryptDict(data []byte, trailer pdfDict) (pdfDict, error) {
	if num, gen, ok := trailer.refValue("Encrypt"); ok {
		return findPDFObject(data, num, gen)
	}
	raw := trailer["Encrypt"]
	if bytes.HasPrefix(raw, []byte("<<")) {
		return parsePDFDict(raw, 0)
	}
	return nil, fmt.Errorf("malformed /Encrypt entry %q", raw)
}

func (t *pdfTarget) check(password []byte) bool {
	if t.revision >= 5 {
		if len(password) > 127 {
			password = password[:127]
		}
		return t.checkUserV5(password) || t.checkOwnerV5(password)
	}
	return t.checkUser(password) || t.checkOwner(password)
}

func padPDFPassword(pass []byte) [32]byte {
	var out [32]byte
	n := copy(out[:], pass)
	copy(out[n:], pdfPasswordPad[:32-n])
	return out
}

func rc4XOR(key, data []byte) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return
	}
	c.XORKeyStream(data, data)
}

// fileKey derives the document key from a padded user password.
func (t *pdfTarget) fileKey(padded [32]byte) []byte {
	h := md5.New()
	h.Write(padded[:])
	h.Write(t.o)
	var pLE [4]byte
	binary.LittleEndian.PutUint32(pLE[:], uint32(t.p))
	h.Write(pLE[:])
	h.Write(t.id0)
	if t.revision >= 4 && !t.encryptMetadata {
		h.Write([]byte{0xff, 0xff, 0xff, 0xff})
	}
	sum := h.Sum(nil)

	n := t.keyLen
	if t.revision == 2 {
		n = 5
	}
	key := sum[:n]
	if t.revision >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(key)
			key = s[:n]
		}
	}
	return key
}

// computeU returns the /U value a user password produces. For revisions 3
// and 4 only the first 16 bytes are significant.
func (t *pdfTarget) computeU(padded [32]byte) []byte {
	key := t.fileKey(padded)

	if t.revision == 2 {
		out := pdfPasswordPad
		rc4XOR(key, out[:])
		return out[:]
	}

	h := md5.New()
	h.Write(pdfPasswordPad[:])
	h.Write(t.id0)
	out := h.Sum(nil)

	tmp := make([]byte, len(key))
	for i := 0; i < 20; i++ {
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		rc4XOR(tmp, out)
	}
	return out
}

func (t *pdfTarget) checkUser(password []byte) bool {
	u := t.computeU(padPDFPassword(password))
	return bytes.Equal(u, t.u[:len(u)])
}

// ownerKey is the RC4 key that wraps the padded user password in /O.
func (t *pdfTarget) ownerKey(owner []byte) []byte {
	padded := padPDFPassword(owner)
	sum := md5.Sum(padded[:])

	n := t.keyLen
	if t.revision == 2 {
		n = 5
	}
	key := sum[:n]
	if t.revision >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(key)
			key = s[:n]
		}
	}
	return key
}

// checkOwner unwraps /O with the candidate and tests the result as the user
// password.
func (t *pdfTarget) checkOwner(password []byte) bool {
	key := t.ownerKey(password)
	user := make([]byte, 32)
	copy(user, t.o)

	if t.revision == 2 {
		rc4XOR(key, user)
	} else {
		tmp := make([]byte, len(key))
		for i := 19; i >= 0; i-- {
			for j := range key {
				tmp[j] = key[j] ^ byte(i)
			}
			rc4XOR(tmp, user)
		}
	}
	var padded [32]byte
	copy(padded[:], user)
	u := t.computeU(padded)
	return bytes.Equal(u, t.u[:len(u)])
}

func (t *pdfTarget) checkUserV5(password []byte) bool {
	hash := t.hashV5(password, t.u[32:40], nil)
	return bytes.Equal(hash, t.u[:32])
}

func (t *pdfTarget) checkOwnerV5(password []byte) bool {
	hash := t.hashV5(password, t.o[32:40], t.u[:48])
	return bytes.Equal(hash, t.o[:32])
}

func (t *pdfTarget) hashV5(password, salt, udata []byte) []byte {
	if t.revision == 5 {
		h := sha256.New()
		h.Write(password)
		h.Write(salt)
		h.Write(udata)
		return h.Sum(nil)
	}
	return hashR6(password, salt, udata)
}

// hashR6 is the iterated SHA-2/AES hash of security handler revision 6.
func hashR6(password, salt, udata []byte) []byte {
	h := sha256.New()
	h.Write(password)
	h.Write(salt)
	h.Write(udata)
	k := h.Sum(nil)

	var e []byte
	for i := 0; i < 64 || int(e[len(e)-1]) > i-32; i++ {
		block := make([]byte, 0, len(password)+len(k)+len(udata))
		block = append(block, password...)
		block = append(block, k...)
		block = append(block, udata...)
		k1 := bytes.Repeat(block, 64)

		c, err := aes.NewCipher(k[:16])
		if err != nil {
			return nil
		}
		e = make([]byte, len(k1))
		cipher.NewCBCEncrypter(c, k[16:32]).CryptBlocks(e, k1)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		switch sum % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		default:
			s := sha512.Sum512(e)
			k = s[:]
		}
	}
	return k[:32]
}
