package id_tools

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"

	ecies "github.com/ecies/go/v2"
	"github.com/pkg/errors"

	"github.com/kutluhann/xorroute/constants"
)

// PrivateKeyFilePath is the path to the private key file
var PrivateKeyFilePath = constants.PrivateKeyFile

// SetDataDirectory sets the data directory for storing private keys
func SetDataDirectory(dir string) {
	PrivateKeyFilePath = filepath.Join(dir, constants.PrivateKeyFile)
}

// PeerID is the truncated SHA-256 of the salted public key. It lives in the
// same space as lookup keys.
type PeerID [constants.KeySizeBytes]byte

func GenerateNewPID() (*ecies.PrivateKey, PeerID, error) {
	privateKey, err := ecies.GenerateKey()
	if err != nil {
		return nil, PeerID{}, errors.Wrap(err, "generating secp256k1 key")
	}

	return privateKey, GeneratePeerIDFromPublicKey(privateKey.PublicKey), nil
}

func SavePrivateKey(key *ecies.PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(PrivateKeyFilePath), 0o700); err != nil {
		return errors.Wrap(err, "creating key directory")
	}
	err := os.WriteFile(PrivateKeyFilePath, []byte(key.Hex()), 0o600)
	return errors.Wrapf(err, "writing private key to %s", PrivateKeyFilePath)
}

func LoadPrivateKey() (*ecies.PrivateKey, PeerID, error) {
	raw, err := os.ReadFile(PrivateKeyFilePath)
	if err != nil {
		return nil, PeerID{}, errors.Wrapf(err, "reading private key from %s", PrivateKeyFilePath)
	}

	privateKey, err := ecies.NewPrivateKeyFromHex(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, PeerID{}, errors.Wrap(err, "parsing private key")
	}

	return privateKey, GeneratePeerIDFromPublicKey(privateKey.PublicKey), nil
}

// LoadOrGenerate loads the key at PrivateKeyFilePath, creating and saving a
// fresh one when the file does not exist yet.
func LoadOrGenerate() (*ecies.PrivateKey, PeerID, error) {
	if _, err := os.Stat(PrivateKeyFilePath); err == nil {
		return LoadPrivateKey()
	}

	privateKey, peerID, err := GenerateNewPID()
	if err != nil {
		return nil, PeerID{}, err
	}
	if err := SavePrivateKey(privateKey); err != nil {
		return nil, PeerID{}, err
	}
	return privateKey, peerID, nil
}

func GeneratePeerIDFromPublicKey(pubKey *ecies.PublicKey) PeerID {
	// apppend the compressed key with the system salt
	dataToHash := append(pubKey.Bytes(true), []byte(constants.Salt)...)
	digest := sha256.Sum256(dataToHash)

	var peerID PeerID
	copy(peerID[:], digest[:])
	return peerID
}

// It is to check whether the other peer's public key matches its peer ID
func CheckPublicKeyMatchesPeerID(pubKey *ecies.PublicKey, pid PeerID) bool {
	return GeneratePeerIDFromPublicKey(pubKey) == pid
}

func GenerateSecureRandomMessage() string {
	return rand.Text()
}

// VerifyIdentity checks that privateKey owns peerID and that a challenge
// encrypted to its public key decrypts back to the same bytes.
func VerifyIdentity(privateKey *ecies.PrivateKey, peerID PeerID) error {
	if !CheckPublicKeyMatchesPeerID(privateKey.PublicKey, peerID) {
		return errors.New("public key does not match peer id")
	}

	challenge := []byte(GenerateSecureRandomMessage())
	sealed, err := ecies.Encrypt(privateKey.PublicKey, challenge)
	if err != nil {
		return errors.Wrap(err, "encrypting challenge")
	}
	opened, err := ecies.Decrypt(privateKey, sealed)
	if err != nil {
		return errors.Wrap(err, "decrypting challenge")
	}
	if !bytes.Equal(opened, challenge) {
		return errors.New("challenge round trip mismatch")
	}
	return nil
}
