package utxo

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// signedTx is a fully signed transaction ready for relay.
type signedTx struct {
	TxID string
	Hex  string
}

// buildSignedTx assembles a P2WPKH spend of sel, pays amount to `to`, returns
// change to `from`, signs every input and verifies each signature with the
// script engine before handing the transaction back.
func buildSignedTx(key *btcec.PrivateKey, from, to btcutil.Address, sel *Selection, amount int64) (*signedTx, error) {
	fromScript, err := txscript.PayToAddrScript(from)
	if err != nil {
		return nil, fmt.Errorf("source script: %w", err)
	}
	toScript, err := txscript.PayToAddrScript(to)
	if err != nil {
		return nil, fmt.Errorf("destination script: %w", err)
	}

	tx := wire.NewMsgTx(2)
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(sel.Inputs))
	for _, u := range sel.Inputs {
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("input txid %q: %w", u.TxID, err)
		}
		outpoint := wire.NewOutPoint(hash, u.Vout)
		tx.AddTxIn(wire.NewTxIn(outpoint, nil, nil))
		prevOuts[*outpoint] = wire.NewTxOut(u.Value, fromScript)
	}

	tx.AddTxOut(wire.NewTxOut(amount, toScript))
	if sel.Change > 0 {
		tx.AddTxOut(wire.NewTxOut(sel.Change, fromScript))
	}

	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, in := range tx.TxIn {
		prev := prevOuts[in.PreviousOutPoint]
		witness, err := txscript.WitnessSignature(tx, sigHashes, i, prev.Value, fromScript, txscript.SigHashAll, key, true)
		if err != nil {
			return nil, fmt.Errorf("sign input %d: %w", i, err)
		}
		in.Witness = witness
	}

	for i, in := range tx.TxIn {
		prev := prevOuts[in.PreviousOutPoint]
		vm, err := txscript.NewEngine(prev.PkScript, tx, i, txscript.StandardVerifyFlags, nil, sigHashes, prev.Value, fetcher)
		if err != nil {
			return nil, fmt.Errorf("verify input %d: %w", i, err)
		}
		if err := vm.Execute(); err != nil {
			return nil, fmt.Errorf("verify input %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}

	return &signedTx{
		TxID: tx.TxHash().String(),
		Hex:  hex.EncodeToString(buf.Bytes()),
	}, nil
}
